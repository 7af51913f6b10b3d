/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/config"
	"github.com/ssargent/nucleon/pkg/logging"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap configuration if needed and start the server",
	Long: `Start the nucleon API server, creating the configuration first when
none exists at the config path.

Examples:
  nucleon up
  nucleon up --data-dir=./data --port=9090`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config is bootstrapped by the command itself
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		level, _ := cmd.Flags().GetString("log-level")

		cfg, created, err := ensureConfig(configPath, dataDir)
		if err != nil {
			cmd.Printf("Error preparing config: %v\n", err)
			os.Exit(1)
		}
		if created {
			cmd.Printf("✅ Created new configuration at %s\n", configPath)
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		} else {
			cmd.Printf("✅ Loaded existing configuration from %s\n", configPath)
		}
		applyServeFlags(cmd, cfg)

		if level == "" {
			level = cfg.Logging.Level
		}
		logger, err := logging.New(level)
		if err != nil {
			cmd.Printf("Error creating logger: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()

		cmd.Printf("Starting nucleon on %s:%d\n", cfg.Bind, cfg.Port)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := startServer(ctx, cfg, logger); err != nil {
			cmd.Printf("Error starting server: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(upCmd)

	upCmd.Flags().String("data-dir", "", "Data directory used when bootstrapping a new config")
	addServeFlags(upCmd)
}

// ensureConfig loads the config at configPath, bootstrapping it when absent
func ensureConfig(configPath, dataDir string) (*config.Config, bool, error) {
	if config.ConfigExists(configPath) {
		cfg, err := config.LoadConfig(configPath)
		return cfg, false, err
	}
	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}
