/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/errs"
)

// promptPassword asks for a password on the terminal. Tests replace it.
var promptPassword = func(message string) (string, error) {
	var password string
	prompt := &survey.Password{
		Message: message,
		Help:    "The same password is required to decode the sequence",
	}
	if err := survey.AskOne(prompt, &password, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return password, nil
}

// resolvePassword returns the flag value, prompting when the stage needs a
// password and none was given
func resolvePassword(flagValue string, needed bool) (string, error) {
	if !needed {
		return "", nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	password, err := promptPassword("Password:")
	if err != nil {
		return "", errs.Wrapf(errs.ErrValidation, err, "read password")
	}
	if password == "" {
		return "", errs.Newf(errs.ErrValidation, "a password is required when encryption is enabled")
	}
	return password, nil
}

// addStageFlags registers the stage selection flags on an encoding command
func addStageFlags(cmd *cobra.Command) {
	defaults := codec.DefaultConfig()
	cmd.Flags().Bool("compression", defaults.UseCompression, "Huffman compress the payload")
	cmd.Flags().Bool("encryption", defaults.UseEncryption, "Encrypt the payload with a password")
	cmd.Flags().Bool("error-correction", defaults.UseErrorCorrection, "Add Reed-Solomon parity")
	cmd.Flags().Int("ecc-symbols", defaults.ECCSymbols, "Parity symbols per Reed-Solomon block")
	cmd.Flags().StringP("password", "p", "", "Encryption password (prompted when empty)")
}

// stageConfig starts from the configured pipeline defaults and applies every
// stage flag the user set explicitly
func stageConfig(cmd *cobra.Command, base codec.Config) codec.Config {
	cfg := base
	flags := cmd.Flags()
	if flags.Changed("compression") {
		cfg.UseCompression, _ = flags.GetBool("compression")
	}
	if flags.Changed("encryption") {
		cfg.UseEncryption, _ = flags.GetBool("encryption")
	}
	if flags.Changed("error-correction") {
		cfg.UseErrorCorrection, _ = flags.GetBool("error-correction")
	}
	if flags.Changed("ecc-symbols") {
		cfg.ECCSymbols, _ = flags.GetInt("ecc-symbols")
	}
	return cfg
}
