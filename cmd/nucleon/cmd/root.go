/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/config"
	"github.com/ssargent/nucleon/pkg/di"
	"github.com/ssargent/nucleon/pkg/logging"
	"go.uber.org/zap"
)

type contextKey string

const configKey contextKey = "config"

var container *di.Container

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nucleon",
	Short: "Nucleon - binary to nucleotide sequence encoder",
	Long: `Nucleon converts arbitrary files into sequences over the A, C, G, T
alphabet and back. Payloads can be Huffman compressed, encrypted with a
password and protected with Reed-Solomon parity before the mapping.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		level, _ := cmd.Flags().GetString("log-level")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if level == "" {
			level = cfg.Logging.Level
		}

		logger, err := logging.New(level)
		if err != nil {
			return errors.Wrap(err, "failed to create logger")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = context.WithValue(ctx, configKey, cfg)
		cmd.SetContext(logging.WithLogger(ctx, logger))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.GetDefaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads the config file when one exists and falls back to the
// defaults otherwise
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" || !config.ConfigExists(configPath) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

// configFrom returns the configuration loaded by the root command
func configFrom(cmd *cobra.Command) *config.Config {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
			return cfg
		}
	}
	return config.DefaultConfig()
}

// loggerFrom returns the logger built by the root command
func loggerFrom(cmd *cobra.Command) *zap.Logger {
	return logging.FromContext(cmd.Context(), logging.Nop())
}
