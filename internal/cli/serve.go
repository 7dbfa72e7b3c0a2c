package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/auditflow/internal/api"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/infrastructure/config"
	"github.com/eshaffer321/auditflow/internal/infrastructure/logging"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

const shutdownTimeout = 30 * time.Second

// ServeOptions holds the flags of the serve command. Zero values use config.
type ServeOptions struct {
	Port    int
	Verbose bool
}

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(cfg *config.Config, opts ServeOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, opts)
}

// Serve runs the API server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, opts ServeOptions) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if opts.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	// Initialize storage
	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	apiCfg := api.ConfigFrom(cfg.Server)
	if opts.Port > 0 {
		apiCfg.Port = opts.Port
	}

	audit := service.NewAuditService(cfg, store, logging.NewLoggerWithSystem(loggingCfg, "audit"))
	server := api.NewServer(apiCfg, store, audit, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// Logger builds the logger used by the one-shot commands. Logs go to
// stderr so reports on stdout stay clean.
func Logger(cfg *config.Config, system string, verbose bool) *slog.Logger {
	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	return logging.NewLoggerTo(os.Stderr, loggingCfg).With("system", system)
}
