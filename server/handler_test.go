// ABOUTME: Tests for the dashboard API handlers against a real store and engine
// ABOUTME: Uses echo contexts over httptest recorders
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-insight/aggregate"
	"finance-insight/config"
	"finance-insight/domain"
	"finance-insight/logger"
	"finance-insight/store"
)

func newTestHandler(t *testing.T) (*handler, *aggregate.Engine) {
	t.Helper()
	log := logger.NewWithLevel(io.Discard, "server-test", "error")
	artifacts, err := store.New(t.TempDir(), 16, log)
	require.NoError(t, err)
	engine := aggregate.NewEngine(artifacts, config.AggregateConfig{MacroWindowDays: 1, StockWindowDays: 7}, log)

	rec := domain.AnalysisRecord{
		VideoID: "vidA",
		Date:    "2025-01-15",
		StockItems: []domain.StockItem{
			{Symbol: "NVDA", Action: domain.ActionBuy, AsOfDate: "2025-01-15"},
		},
	}
	rec.Normalize()
	_, err = artifacts.WriteJSON("2025-01-15", store.CategoryAnalysis, "vidA_analysis.json", rec)
	require.NoError(t, err)

	return &handler{engine: engine, artifacts: artifacts, logger: log}, engine
}

func doGet(h echo.HandlerFunc, target string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h(c)
}

func TestHealth(t *testing.T) {
	t.Run("should report service health", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec, err := doGet(h.health, "/v1/health")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "finance-insight", body["service"])
	})
}

func TestSummary(t *testing.T) {
	t.Run("should regenerate a report for the requested window", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec, err := doGet(h.summary, "/v1/summary?stock_days=7&as_of=2025-01-15")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		var report domain.SummaryReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, "2025-01-15", report.AsOf)
		assert.Contains(t, report.StockWindow, "NVDA")
	})

	t.Run("should reject a non-numeric window size", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec, err := doGet(h.summary, "/v1/summary?macro_days=lots")

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject a malformed as_of date", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec, err := doGet(h.summary, "/v1/summary?as_of=01-15-2025")

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLatestSummary(t *testing.T) {
	t.Run("should return 404 before any report exists", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec, err := doGet(h.latestSummary, "/v1/summary/latest")

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should serve the most recently persisted report", func(t *testing.T) {
		h, engine := newTestHandler(t)
		generated, err := engine.Aggregate(context.Background(), 1, 7, "2025-01-15")
		require.NoError(t, err)

		rec, err := doGet(h.latestSummary, "/v1/summary/latest")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		var report domain.SummaryReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, generated.ReportID, report.ReportID)
	})
}
