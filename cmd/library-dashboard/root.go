package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/terra-clan/library-dashboard/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "library-dashboard",
	Short: "Dashboard client for an eLibrary document backend",
	Long: `library-dashboard browses the documents of an eLibrary backend: it keeps
a filtered, sorted and paginated view of the document set, pushes every
change to websocket viewers, and counts downloads per day.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults to $"+config.ConfigPathEnv+")")
}

// loadConfig loads the config and installs the JSON logger at its level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	return cfg, nil
}
