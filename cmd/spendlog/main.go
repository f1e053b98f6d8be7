package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/chart"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	apphttp "spendlog/internal/http"
	"spendlog/internal/log"
	"spendlog/internal/services"
)

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "spendlog",
		Short: "Serve the expense tracker web UI",
		Long: `spendlog serves the expense tracker web UI and its JSON API.

Configuration comes from the environment and ./.env; see PORT, DATA_BACKEND,
DATA_DIR, SQLITE_DB_PATH, RECONCILE_MODE and AMQP_URL.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "load environment from this file instead of ./.env")
	return cmd
}

func main() {
	bootLogger := cli.SetupLogger(nil, os.Stdout)

	ctx, stop := cli.SignalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		cli.Exit(bootLogger, "Server error", err)
	}
}

func serve(ctx context.Context, envFile string) error {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := cli.LoadEnvFile(envFiles...); err != nil {
		return err
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, closeBackend, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("Closing backend failed", log.FieldError, err)
		}
	}()

	pie := chart.NewPieRenderer(0, 0)
	tracker := services.NewTracker(store, services.TrackerConfig{
		Mode:        cfg.Mode(),
		Chart:       pie,
		SearchDelay: cfg.SearchDebounce,
		Logger:      logger.WithComponent(log.ComponentTracker).Slog(),
	})
	defer tracker.Close()

	srv := apphttp.NewServer(":"+cfg.Port, tracker, pie, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendlog server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"reconcile_mode", cfg.Mode(),
			"amqp_enabled", cfg.AMQPEnabled(),
			"transactions", store.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cli.GracefulShutdown(gctx, logger, cfg.ShutdownTimeout, srv.Shutdown)
	})
	return g.Wait()
}
