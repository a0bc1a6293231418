// ABOUTME: This file wires the dashboard HTTP server: routing, request logging and graceful shutdown.
// ABOUTME: The server is read-only; it regenerates or serves summary reports, never runs the pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"finance-insight/aggregate"
	"finance-insight/config"
	"finance-insight/store"
)

// Server exposes the summary dashboard API.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger *slog.Logger
}

func New(engine *aggregate.Engine, artifacts *store.ArtifactStore, cfg config.ServerConfig, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency))
			return nil
		},
	}))

	h := &handler{engine: engine, artifacts: artifacts, logger: logger}
	v1 := e.Group("/v1")
	v1.GET("/health", h.health)
	v1.GET("/summary", h.summary)
	v1.GET("/summary/latest", h.latestSummary)

	return &Server{echo: e, cfg: cfg, logger: logger}
}

// Start serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.logger.Info("dashboard listening", slog.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("dashboard stopped")
	return nil
}
