package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-telemetry-metrics/internal/config"
	"github.com/pable/go-telemetry-metrics/internal/identity"
	"github.com/pable/go-telemetry-metrics/internal/logging"
)

var (
	dbPath         string
	configPath     string
	logLevel       string
	identitiesPath string
)

// Set by setup before any subcommand runs.
var (
	cfg     *config.Config
	logBase *zap.Logger
	logger  *zap.SugaredLogger
	ids     *identity.Map
)

var rootCmd = &cobra.Command{
	Use:   "tmetrics",
	Short: "Game telemetry metrics tool",
	Long: `Import game telemetry CSV exports and compute kill, rivalry, activity,
death-location and shop metrics.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cError.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".tmetrics", "metrics.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&identitiesPath, "identities", "", "YAML/JSON file mapping player ids to names")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(killsCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(deathsCmd)
	rootCmd.AddCommand(shopCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(shellCmd)
}

// setup loads configuration (defaults, file, env, then flags) and builds the
// logger and identity map shared by every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("identities") {
		c.IdentityFile = identitiesPath
	}
	if flags.Changed("db") || c.DBPath == "" {
		c.DBPath = dbPath
	}
	if err := c.Validate(); err != nil {
		return err
	}
	dbPath = c.DBPath

	base, err := logging.New(c.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logBase = base.With(zap.String("run_id", uuid.NewString()))
	logger = logBase.Sugar()

	m, err := c.IdentityMap()
	if err != nil {
		return err
	}
	cfg, ids = c, m
	logger.Debugw("configuration loaded",
		"command", cmd.Name(),
		"db", c.DBPath,
		"identities", m.Len(),
		"metric", c.FeatureMetric,
	)
	return nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
