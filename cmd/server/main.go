package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"datatrail/internal/app"
	"datatrail/internal/platform/config"
	"datatrail/internal/platform/httpserver"
	"datatrail/internal/platform/logger"
)

// main loads configuration, wires the application and runs the HTTP server
// until SIGINT or SIGTERM.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("datatrail stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w\n\n%s", err, config.Usage())
	}
	log := logger.New(cfg.Log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("close connections", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Server, a.Router)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting datatrail", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
