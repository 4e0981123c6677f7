// Package main provides the smartsearch CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/app"
	"github.com/dshills/smartsearch/internal/config"
	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/internal/mcp"
	"github.com/dshills/smartsearch/internal/metrics"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Persistent flags
var (
	configPath string
	envName    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartsearch",
	Short: "Semantic search for a marketplace catalog",
	Long: `smartsearch indexes catalog items, shops and categories as embedding
vectors and serves similarity search with a keyword fallback.

It runs as an HTTP API (serve), as an MCP server on stdio (mcp), or as
one-shot maintenance commands (reindex, import).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is normal outside local development
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (default: $ENV or local)")
	rootCmd.Version = version
	mcp.ServerVersion = version

	rootCmd.AddCommand(
		newServeCommand(),
		newMCPCommand(),
		newReindexCommand(),
		newImportCommand(),
		newVersionCommand(),
	)
}

// loadConfig resolves the environment and reads its config file
func loadConfig() (config.Config, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, env, nil
}

// bootstrap loads config, builds the logger and opens the app.
// The returned cleanup closes the app and flushes the logger.
func bootstrap(ctx context.Context) (*app.App, func(), error) {
	cfg, env, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics.Register()

	log.Info("starting smartsearch",
		zap.String("version", version),
		zap.String("env", env),
		zap.String("db", cfg.Database.Path),
	)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close app", zap.Error(err))
		}
		_ = log.Sync()
	}
	return a, cleanup, nil
}
