// Package main implements the clientrag CLI: index rebuilds, one-off searches
// and the HTTP search server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clientrag/internal/config"
	logpkg "github.com/kailas-cloud/clientrag/internal/logger"
	"github.com/kailas-cloud/clientrag/internal/metrics"
	"github.com/kailas-cloud/clientrag/internal/version"
)

var (
	// envName selects config/<env>.yaml and the logger preset.
	envName string
	// configPath overrides the env-based config lookup.
	configPath string

	cfg    config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clientrag",
	Short: "Per-client vector indexes over shared documents",
	Long: `clientrag builds one vector index per client and category from
Google Docs and answers nearest-neighbour queries across all of them.`,
	Version:           version.String(),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (overrides --env lookup)")
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads .env, the config file and the logger before any subcommand runs.
func setup(*cobra.Command, []string) error {
	_ = godotenv.Load()

	if envName == "" {
		envName = config.GetEnv()
	}

	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(envName)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err = logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexMetrics()
	return nil
}
