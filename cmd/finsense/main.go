// Package main implements the finsense CLI: message extraction, storage and
// spending advice from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/finsense/internal/config"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// configPath overrides FINSENSE_CONFIG when set
	configPath string
	// userID scopes every storage operation
	userID   string
	logLevel string

	cfg config.Config
	log zerolog.Logger

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finsense",
	Short: "Extract and classify transactions from financial messages",
	Long: `finsense turns bank SMS, emails and notifications into categorized
transactions and generates spending insights and recommendations from them.

Configuration is read from $HOME/.config/finsense/config.toml (or FINSENSE_CONFIG)
and FINSENSE_* environment variables.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&userID, "user", pipeline.DefaultUserID, "user the command operates on")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides log.level)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		if err := os.Setenv("FINSENSE_CONFIG", configPath); err != nil {
			return fmt.Errorf("failed to set config path: %w", err)
		}
	}

	c, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	log = logger.NewWithLevel(os.Stderr, cfg.Log.Level)
	return nil
}

// commandContext attaches the configured logger to the command context.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, log)
}
