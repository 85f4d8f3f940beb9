package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamopay/txrisk/internal/compliance/engine"
	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/models"
)

func newTestServer() *Server {
	eng := engine.New(config.DefaultThresholds(), nil)
	s := New(config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"*"}}, eng, nil)
	s.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doJSON(t, newTestServer(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	body := map[string]any{
		"client_id": "ACME",
		"records": []models.TransactionRecord{
			{Timestamp: &ts, Amount: decimal.NewFromInt(15_000_000), Status: models.StatusPaid, Type: "PSE"},
		},
	}
	w := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, w.Code)

	var analysis engine.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, "ACME", analysis.Verdict.ClientID)
	assert.NotEqual(t, models.RiskLevelNotEvaluated, analysis.Verdict.Score.Level)
}

func TestAnalyzeRejectsMissingClientID(t *testing.T) {
	w := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/analyze", map[string]any{"records": nil})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRejectsMalformedBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPortfolioEndpoint(t *testing.T) {
	body := map[string]any{
		"clients": []map[string]any{
			{"client_id": "CL-A"},
			{"client_id": "CL-B"},
		},
		"workers": 2,
	}
	w := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/portfolio", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp portfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "CL-A", resp.Results[0].Verdict.ClientID)
	assert.Equal(t, "CL-B", resp.Results[1].Verdict.ClientID)
	assert.Equal(t, 2, resp.Summary.TotalClients)
	assert.Equal(t, 2, resp.Summary.ByLevel.NotEvaluated)
}

func TestMetricsEndpoint(t *testing.T) {
	w := doJSON(t, newTestServer(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
