// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

// RegisterRoutes returns the HTTP handler: GET /healthcheck and GET /state.
func (b *Bridge) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthcheck", b.HealthCheckHandler)
	e.GET("/state", b.StateHandler)

	return e
}

func (b *Bridge) HealthCheckHandler(c echo.Context) error {
	if b.Healthy(time.Now()) {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (b *Bridge) StateHandler(c echo.Context) error {
	s, ok := b.kettle.Cache().Current()
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": errNoState.Error()})
	}
	return c.JSON(http.StatusOK, ekg.NewSnapshot(s))
}

// Serve runs the HTTP server on port until ctx is done.
func (b *Bridge) Serve(ctx context.Context, port uint) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      b.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("http server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
