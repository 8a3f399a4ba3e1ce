package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/checkstock/internal/export"
	"github.com/andresuchdata/checkstock/internal/repository"
	"github.com/andresuchdata/checkstock/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := service.NewLedgerService(repository.NewMemoryLedger(), service.Options{
		Now: func() time.Time { return time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC) },
	})
	return NewRouter(&Services{LedgerService: svc}, []string{"*"}, 8)
}

func do(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	rec := do(newTestRouter(t), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestIngestThenListLedger(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, uploadRequest(t, map[string]string{"kho.csv": "LOC,,\nBột mì,,\nA1,10,250\nA2,4,100\n"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ingest struct {
		Accepted int `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingest))
	assert.Equal(t, 1, ingest.Accepted)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/ledger?material=bot+mi", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 2, listing.Total)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"material":"BOT MI"`)
}

func TestIngestRejectedWorkbooks(t *testing.T) {
	router := newTestRouter(t)

	for name, content := range map[string]string{
		"notes.csv": "ghi chu\nkhong co du lieu\n",
		"notes.txt": "plain text",
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(router, uploadRequest(t, map[string]string{name: content}))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		})
	}
}

func TestIngestRequiresFiles(t *testing.T) {
	rec := do(newTestRouter(t), uploadRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastParameterErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		query string
		param string
	}{
		{"lead_time_days=-3", "lead_time_days"},
		{"lead_time_days=0", "lead_time_days"},
		{"horizon_days=abc", "horizon_days"},
		{"horizon_days=-1", "horizon_days"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/forecast?"+tt.query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.param, body["param"])
		})
	}
}

func TestRecordTransactionAndForecast(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []string{
		`{"kind":"nhap","material":"Đường","weight_kg":600,"date":"2024-03-01"}`,
		`{"kind":"xuat","material":"Đường","weight_kg":100,"date":"02/03/2024"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := do(router, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/forecast?lead_time_days=3&horizon_days=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		LeadTimeDays    int `json:"lead_time_days"`
		Recommendations []struct {
			Material     string  `json:"material"`
			OnHandKg     float64 `json:"on_hand_kg"`
			DailyUsageKg float64 `json:"daily_usage_kg"`
			Status       string  `json:"status"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 3, out.LeadTimeDays)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, "DUONG", out.Recommendations[0].Material)
	assert.InDelta(t, 500.0, out.Recommendations[0].OnHandKg, 1e-9)
	assert.InDelta(t, 100.0, out.Recommendations[0].DailyUsageKg, 1e-9)
	assert.Equal(t, "safe", out.Recommendations[0].Status)
}

func TestRecordTransactionValidation(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []string{
		`{"kind":"count","material":"Muối","weight_kg":5}`,
		`{"kind":"inbound","weight_kg":5}`,
		`{"kind":"inbound","material":"Muối"}`,
		`{"kind":"inbound","material":"Muối","weight_kg":5,"date":"tomorrow"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := do(router, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestExportAndLotCard(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions",
		strings.NewReader(`{"kind":"inbound","material":"Muối","lot":"m-1","bags":2,"weight_kg":100}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, do(router, req).Code)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/export/xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSXRenderer{}.ContentType(), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/export/pdf?material=muoi", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/lots/M-1/card", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/lots/Z9/card", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidFilter(t *testing.T) {
	router := newTestRouter(t)

	for _, query := range []string{"from=yesterday", "kind=transfer", "from=2024-03-10&to=2024-03-01"} {
		rec := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/totals?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
