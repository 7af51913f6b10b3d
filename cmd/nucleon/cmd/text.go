/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/ssargent/nucleon/pkg/pipeline"
)

// textCmd represents the text command
var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Encode and decode short text inline",
	Long: `Encode UTF-8 text given on the command line and print the sequence, or
decode a sequence given on the command line and print the text.

Examples:
  nucleon text encode "hello world" --metadata=hello_metadata.json
  nucleon text decode ATGCGGA...TAC --metadata=hello_metadata.json`,
}

// textEncodeCmd represents the text encode command
var textEncodeCmd = &cobra.Command{
	Use:   "encode <text>",
	Short: "Encode text and print the sequence",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		metadataPath, _ := cmd.Flags().GetString("metadata")
		passwordFlag, _ := cmd.Flags().GetString("password")

		stages := stageConfig(cmd, configFrom(cmd).Pipeline)
		password, err := resolvePassword(passwordFlag, stages.UseEncryption)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		p := pipeline.New(pipeline.WithLogger(loggerFrom(cmd)))
		sequence, err := encodeText(p, args[0], stages, password, metadataPath)
		if err != nil {
			cmd.Printf("Error encoding text: %v\n", err)
			os.Exit(1)
		}

		cmd.Println(sequence)
		cmd.Printf("Metadata: %s\n", metadataPath)
	},
}

// textDecodeCmd represents the text decode command
var textDecodeCmd = &cobra.Command{
	Use:   "decode <sequence>",
	Short: "Decode a sequence and print the text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		metadataPath, _ := cmd.Flags().GetString("metadata")
		passwordFlag, _ := cmd.Flags().GetString("password")

		md, err := readMetadata(metadataPath)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		password, err := resolvePassword(passwordFlag, md.Config.UseEncryption)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		p := pipeline.New(pipeline.WithLogger(loggerFrom(cmd)))
		text, result, err := decodeText(p, args[0], md, password)
		if err != nil {
			cmd.Printf("Error decoding text: %v\n", err)
			os.Exit(1)
		}

		for _, warning := range result.Warnings {
			cmd.Printf("⚠️  %s\n", warning)
		}
		cmd.Println(text)
	},
}

func init() {
	rootCmd.AddCommand(textCmd)
	textCmd.AddCommand(textEncodeCmd)
	textCmd.AddCommand(textDecodeCmd)

	addStageFlags(textEncodeCmd)
	textEncodeCmd.Flags().StringP("metadata", "m", "text_metadata.json", "Where to write the metadata record")

	textDecodeCmd.Flags().StringP("metadata", "m", "text_metadata.json", "Metadata record of the sequence")
	textDecodeCmd.Flags().StringP("password", "p", "", "Decryption password (prompted when needed)")
}

// encodeText encodes text and writes its metadata record to metadataPath
func encodeText(p *pipeline.Pipeline, text string, stages codec.Config, password, metadataPath string) (string, error) {
	sequence, md, err := p.Encode([]byte(text), stages, password)
	if err != nil {
		return "", err
	}

	blob, err := codec.NewMetadataCodec().Encode(md)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(metadataPath, blob, 0600); err != nil {
		return "", errors.Wrap(err, "failed to write metadata file")
	}
	return sequence, nil
}

// decodeText decodes sequence and requires the payload to be valid UTF-8
func decodeText(p *pipeline.Pipeline, sequence string, md *codec.Metadata, password string) (string, *pipeline.Result, error) {
	result, err := p.Decode(sequence, md, password)
	if err != nil {
		return "", nil, err
	}
	if !utf8.Valid(result.Data) {
		return "", result, errs.Newf(errs.ErrDecoding, "decoded payload is not valid UTF-8 text")
	}
	return string(result.Data), result, nil
}
