// Package cli holds the startup steps shared by cmd/spendlog and
// cmd/spendctl: environment, logging, configuration, backend and shutdown.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlog/internal/backend"
	"spendlog/internal/config"
	"spendlog/internal/log"
	"spendlog/internal/services"
)

// LoadEnvFile loads environment files. With no paths the optional ./.env
// is read and a missing file is ignored; explicit paths must exist.
// Variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default. Invalid level or format values fall back to info/text.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	if out != nil {
		lc.Output = out
	}
	if cfg != nil {
		lc.Level, _ = log.ParseLevel(cfg.LogLevel)
		lc.Format, _ = log.ParseFormat(cfg.LogFormat)
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads configuration from the environment and
// applies overrides before validating.
func LoadAndValidateConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg := config.Load()
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore creates the configured backend and loads the transaction
// store from it. The returned cleanup closes the backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.TransactionStore, backend.CleanupFunc, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentStorage).Slog()).CreateBackend(ctx, bc)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s backend: %w", bc.Type, err)
	}

	opts := append(res.StoreOptions(), services.WithLogger(logger.WithComponent(log.ComponentStore).Slog()))
	store, err := services.OpenTransactionStore(ctx, res.Store, opts...)
	if err != nil {
		if cerr := res.Close(); cerr != nil {
			logger.WarnContext(ctx, "Closing backend failed", log.FieldError, cerr)
		}
		return nil, nil, err
	}
	return store, res.Close, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// GracefulShutdown blocks until ctx is done, then runs shutdown with a
// fresh context bounded by timeout.
func GracefulShutdown(ctx context.Context, logger *log.Logger, timeout time.Duration, shutdown func(context.Context) error) error {
	<-ctx.Done()
	logger.Info("Shutdown signal received", "reason", context.Cause(ctx))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		}
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

// Exit logs err and terminates the process with status 1.
func Exit(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
