package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/checkstock/internal/config"
	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/forecast"
)

func TestForecastKeyNormalizesMaterials(t *testing.T) {
	a := forecastKey(forecast.Request{Materials: []string{"Bột mì", "Đường"}, LeadTimeDays: 7, HorizonDays: 30})
	b := forecastKey(forecast.Request{Materials: []string{"DUONG", " bot  mi "}, LeadTimeDays: 7, HorizonDays: 30})
	c := forecastKey(forecast.Request{Materials: []string{"DUONG"}, LeadTimeDays: 7, HorizonDays: 30})
	d := forecastKey(forecast.Request{Materials: []string{"DUONG"}, LeadTimeDays: 14, HorizonDays: 30})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, c, d)
	assert.True(t, strings.HasPrefix(a, forecastKeyPrefix+":"))
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, snapshotKeyPrefix+":default", snapshotKey(domain.LedgerFilter{}))

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	withDate := snapshotKey(domain.LedgerFilter{From: &from})
	withLot := snapshotKey(domain.LedgerFilter{Lot: "a1"})

	assert.NotEqual(t, withDate, withLot)
	assert.Equal(t, withLot, snapshotKey(domain.LedgerFilter{Lot: " A1 "}))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	c, err := NewLedgerCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	req := forecast.Request{LeadTimeDays: 7, HorizonDays: 30}
	require.NoError(t, c.SetForecast(ctx, req, []domain.ReorderRecommendation{{Material: "X"}}))

	recs, ok, err := c.GetForecast(ctx, req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, recs)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis.local:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "redis.local:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}
