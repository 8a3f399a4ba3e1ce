package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/checkstock/internal/config"
	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/forecast"
)

const (
	ledgerKeyPrefix     = "checkstock:"
	forecastKeyPrefix   = ledgerKeyPrefix + "forecast"
	snapshotKeyPrefix   = ledgerKeyPrefix + "snapshot"
	ledgerScanBatchSize = 100
)

// LedgerCache holds derived views of the ledger. Any append to the ledger
// must be followed by InvalidateAll.
type LedgerCache interface {
	GetForecast(ctx context.Context, req forecast.Request) ([]domain.ReorderRecommendation, bool, error)
	SetForecast(ctx context.Context, req forecast.Request, recs []domain.ReorderRecommendation) error
	GetSnapshot(ctx context.Context, filter domain.LedgerFilter) ([]domain.InventorySnapshot, bool, error)
	SetSnapshot(ctx context.Context, filter domain.LedgerFilter, snaps []domain.InventorySnapshot) error
	InvalidateAll(ctx context.Context) error
}

type redisLedgerCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopLedgerCache struct{}

func NewLedgerCache(cfg config.CacheConfig) (LedgerCache, error) {
	if !cfg.Enabled {
		return &noopLedgerCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisLedgerCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopLedgerCache() LedgerCache {
	return &noopLedgerCache{}
}

func (c *redisLedgerCache) GetForecast(ctx context.Context, req forecast.Request) ([]domain.ReorderRecommendation, bool, error) {
	var recs []domain.ReorderRecommendation
	ok, err := c.get(ctx, forecastKey(req), &recs)
	return recs, ok, err
}

func (c *redisLedgerCache) SetForecast(ctx context.Context, req forecast.Request, recs []domain.ReorderRecommendation) error {
	return c.set(ctx, forecastKey(req), recs)
}

func (c *redisLedgerCache) GetSnapshot(ctx context.Context, filter domain.LedgerFilter) ([]domain.InventorySnapshot, bool, error) {
	var snaps []domain.InventorySnapshot
	ok, err := c.get(ctx, snapshotKey(filter), &snaps)
	return snaps, ok, err
}

func (c *redisLedgerCache) SetSnapshot(ctx context.Context, filter domain.LedgerFilter, snaps []domain.InventorySnapshot) error {
	return c.set(ctx, snapshotKey(filter), snaps)
}

func (c *redisLedgerCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, ledgerKeyPrefix, ledgerScanBatchSize)
}

func (c *redisLedgerCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *redisLedgerCache) set(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopLedgerCache) GetForecast(ctx context.Context, req forecast.Request) ([]domain.ReorderRecommendation, bool, error) {
	return nil, false, nil
}

func (n *noopLedgerCache) SetForecast(ctx context.Context, req forecast.Request, recs []domain.ReorderRecommendation) error {
	return nil
}

func (n *noopLedgerCache) GetSnapshot(ctx context.Context, filter domain.LedgerFilter) ([]domain.InventorySnapshot, bool, error) {
	return nil, false, nil
}

func (n *noopLedgerCache) SetSnapshot(ctx context.Context, filter domain.LedgerFilter, snaps []domain.InventorySnapshot) error {
	return nil
}

func (n *noopLedgerCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func forecastKey(req forecast.Request) string {
	parts := []string{
		fmt.Sprintf("lead=%d", req.LeadTimeDays),
		fmt.Sprintf("horizon=%d", req.HorizonDays),
	}
	if len(req.Materials) > 0 {
		parts = append(parts, "materials="+joinMaterials(req.Materials))
	}
	return forecastKeyPrefix + ":" + hashParts(parts)
}

func snapshotKey(filter domain.LedgerFilter) string {
	var parts []string

	if len(filter.Materials) > 0 {
		parts = append(parts, "materials="+joinMaterials(filter.Materials))
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		sort.Strings(kinds)
		parts = append(parts, "kinds="+strings.Join(kinds, ","))
	}
	if lot := domain.NormalizeCode(filter.Lot); lot != "" {
		parts = append(parts, "lot="+lot)
	}
	if filter.SourceSheet != "" {
		parts = append(parts, "sheet="+strings.ToLower(strings.TrimSpace(filter.SourceSheet)))
	}
	if filter.From != nil {
		parts = append(parts, "from="+filter.From.Format("2006-01-02"))
	}
	if filter.To != nil {
		parts = append(parts, "to="+filter.To.Format("2006-01-02"))
	}

	if len(parts) == 0 {
		return snapshotKeyPrefix + ":default"
	}
	return snapshotKeyPrefix + ":" + hashParts(parts)
}

func hashParts(parts []string) string {
	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// joinMaterials normalizes names so "Bột mì" and "BOT MI" share an entry.
func joinMaterials(values []string) string {
	c := make([]string, 0, len(values))
	for _, v := range values {
		if n := domain.NormalizeMaterial(v); n != "" {
			c = append(c, n)
		}
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
