package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spendlog/internal/chart"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/log"
	"spendlog/internal/services"
)

// app carries what the subcommands share. The store is opened lazily so
// commands that do not need it (events) never touch the backend.
type app struct {
	envFile    string
	backend    string
	dataDir    string
	sqlitePath string

	cfg    *config.Config
	logger *log.Logger

	store   *services.TransactionStore
	cleanup func() error
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "spendctl",
		Short: "Record and inspect income and expenses",
		Long: `spendctl manages the same transaction collection as the spendlog web server.

Storage is chosen with DATA_BACKEND (or --backend) and DATA_DIR or
SQLITE_DB_PATH; flags override the environment and .env.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "environment file to load (default: ./.env if present)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend: file, memory or sqlite")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory of the file backend")
	root.PersistentFlags().StringVar(&a.sqlitePath, "sqlite-path", "", "database path of the sqlite backend")

	root.AddCommand(
		addCmd(a),
		rmCmd(a),
		lsCmd(a),
		summaryCmd(a),
		chartCmd(a),
		tuiCmd(a),
		eventsCmd(a),
	)
	return root, a
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	root, a := newRootCmd()
	err := a.run(ctx, root)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}
	if err := cli.LoadEnvFile(envFiles...); err != nil {
		return err
	}

	quietByDefault := os.Getenv("LOG_LEVEL") == ""
	cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) {
		if a.backend != "" {
			c.DataBackend = a.backend
		}
		if a.dataDir != "" {
			c.DataDir = a.dataDir
		}
		if a.sqlitePath != "" {
			c.SQLiteDBPath = a.sqlitePath
		}
		// a CLI only reports problems unless asked otherwise
		if quietByDefault {
			c.LogLevel = "warn"
		}
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	var out io.Writer = cmd.ErrOrStderr()
	if cmd.Name() == "tui" {
		// the terminal belongs to the UI
		out = io.Discard
	}
	a.logger = cli.SetupLogger(cfg, out)
	return nil
}

func (a *app) openStore(ctx context.Context) (*services.TransactionStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, cleanup, err := cli.OpenStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store, a.cleanup = store, cleanup
	return store, nil
}

// tracker opens the store and wraps it for read-side commands.
func (a *app) tracker(ctx context.Context, pie *chart.PieRenderer) (*services.Tracker, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	tc := services.TrackerConfig{
		Mode:   a.cfg.Mode(),
		Logger: a.logger.WithComponent(log.ComponentTracker).Slog(),
	}
	if pie != nil {
		tc.Chart = pie
	}
	return services.NewTracker(store, tc), nil
}

// run executes root and releases the backend even when a command fails,
// since cobra skips the post-run hooks after an error.
func (a *app) run(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.store, a.cleanup = nil, nil
	return err
}
