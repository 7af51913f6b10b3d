/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/config"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the nucleon REST API server from the configuration file.

The server exposes encode, decode and job endpoints under /api/v1,
Prometheus metrics under /metrics and the API description under /swagger.
Run 'nucleon init' first to create a configuration with an API key.

Examples:
  nucleon serve
  nucleon serve --config=/etc/nucleon/config.yaml --port=9090`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := configFrom(cmd)
		applyServeFlags(cmd, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := startServer(ctx, cfg, loggerFrom(cmd)); err != nil {
			cmd.Printf("Error starting server: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "P", 0, "Port to listen on (overrides config)")
	cmd.Flags().String("bind", "", "Address to bind to (overrides config)")
}

// applyServeFlags copies explicitly set server flags over the config
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
}

// startServer hands the configuration to the injected server starter
func startServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}
	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, cfg, logger)
}
