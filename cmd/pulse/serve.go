package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/api"
	"github.com/hyperengineering/pulse/internal/config"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/telemetry"
	"github.com/hyperengineering/pulse/internal/worker"
)

// statsSampleInterval paces the row-count gauge refresh while telemetry is on.
const statsSampleInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 3. Initialize logger
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("configuration loaded")
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// 4. Telemetry (no-op unless enabled)
	if err := telemetry.Init(ctx, telemetry.Settings{
		Enabled:      cfg.Telemetry.Enabled,
		Stdout:       cfg.Telemetry.Stdout,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  "pulse",
		Version:      Version,
	}); err != nil {
		return err
	}
	slog.Info("telemetry initialized", "enabled", telemetry.Enabled())

	// 5. Initialize store (migrations, WAL mode)
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	s := telemetry.WrapStore(db)
	slog.Info("store initialized", "dialect", s.Dialect())

	// 6. Initialize HTTP router
	handler := api.NewHandler(s, api.HandlerConfig{
		APIKey:         cfg.Auth.APIKey,
		Version:        Version,
		MaxConcurrency: cfg.Rollup.MaxConcurrency,
		DefaultLimit:   cfg.Activity.DefaultLimit,
		MaxLimit:       cfg.Activity.MaxLimit,
		Location:       cfg.Location(),
	})
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 7. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 8. Workers
	var wg sync.WaitGroup
	if telemetry.Enabled() {
		sampler := worker.NewStatsSampler(s, statsSampleInterval)
		startWorker(ctx, &wg, "stats-sampler", sampler.Run)
	}

	// 9. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// 10. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 11. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}

	if err := s.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func openStore(cfg *config.Config) (*store.SQLStore, error) {
	return store.Open(store.Options{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
}
