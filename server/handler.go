// ABOUTME: HTTP handlers for the dashboard API endpoints
// ABOUTME: /v1/summary regenerates a report on demand; /v1/summary/latest serves the persisted one
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"finance-insight/aggregate"
	"finance-insight/domain"
	"finance-insight/store"
)

type handler struct {
	engine    *aggregate.Engine
	artifacts *store.ArtifactStore
	logger    *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "finance-insight",
	})
}

// summary regenerates a report for the requested windows. Query parameters
// macro_days, stock_days and as_of are optional and fall back to the
// configured defaults.
func (h *handler) summary(c echo.Context) error {
	macroDays, err := intParam(c, "macro_days")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	stockDays, err := intParam(c, "stock_days")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	asOf := c.QueryParam("as_of")
	if asOf != "" {
		if _, err := domain.ParseDay(asOf); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "as_of must be formatted YYYY-MM-DD"})
		}
	}

	report, err := h.engine.Aggregate(c.Request().Context(), macroDays, stockDays, asOf)
	if err != nil {
		h.logger.Error("aggregation failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "aggregation failed"})
	}
	return c.JSON(http.StatusOK, report)
}

func (h *handler) latestSummary(c echo.Context) error {
	report, err := h.artifacts.LatestReport()
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "no summary report generated yet"})
		}
		h.logger.Error("could not load latest report", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not load latest report"})
	}
	return c.JSON(http.StatusOK, report)
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
