/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/logging"
	"github.com/ssargent/nucleon/pkg/pipeline"
	"go.uber.org/zap"
)

// decodeResult describes the file written by decodeFile
type decodeResult struct {
	OutputPath string
	Size       int
	Result     *pipeline.Result
}

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <dna-file> <metadata-file>",
	Short: "Decode a nucleotide sequence back into the original file",
	Long: `Decode a nucleotide sequence using its metadata record.

The output is written to decoded_<original file name> unless --out is
given. A sequence too damaged for error correction still decodes on a
best-effort basis and the problems are reported as warnings.

Examples:
  nucleon decode report.dna report_metadata.json
  nucleon decode report.dna report_metadata.json --out=report.pdf`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		passwordFlag, _ := cmd.Flags().GetString("password")

		md, err := readMetadata(args[1])
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		password, err := resolvePassword(passwordFlag, md.Config.UseEncryption)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		logger := loggerFrom(cmd)
		p := pipeline.New(pipeline.WithLogger(logger))

		result, err := decodeFile(p, args[0], md, password, out)
		if err != nil {
			logger.Error("decode failed", zap.String(logging.FieldFileName, args[0]), zap.Error(err))
			cmd.Printf("Error decoding %s: %v\n", args[0], err)
			os.Exit(1)
		}

		for _, warning := range result.Result.Warnings {
			cmd.Printf("⚠️  %s\n", warning)
		}
		cmd.Printf("✅ Decoded %s (%d bytes)\n", result.OutputPath, result.Size)
		if result.Result.Corrected > 0 {
			cmd.Printf("Corrected bytes: %d\n", result.Result.Corrected)
		}
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringP("out", "o", "", "Output file (default decoded_<original file name>)")
	decodeCmd.Flags().StringP("password", "p", "", "Decryption password (prompted when needed)")
}

// readMetadata loads and validates a metadata record from disk
func readMetadata(path string) (*codec.Metadata, error) {
	blob, err := os.ReadFile(path) // #nosec G304 -- path supplied by the user
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read metadata %s", path)
	}
	return codec.NewMetadataCodec().Decode(blob)
}

// decodeFile reverses the pipeline for the sequence stored at dnaPath and
// writes the payload to out, or to decoded_<name> in the working directory
func decodeFile(p *pipeline.Pipeline, dnaPath string, md *codec.Metadata, password, out string) (*decodeResult, error) {
	sequence, err := os.ReadFile(dnaPath) // #nosec G304 -- path supplied by the user
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sequence %s", dnaPath)
	}

	result, err := p.Decode(string(sequence), md, password)
	if err != nil {
		return nil, err
	}

	if out == "" {
		out = defaultDecodedName(dnaPath, md)
	}
	if err := os.WriteFile(out, result.Data, 0600); err != nil {
		return nil, errors.Wrap(err, "failed to write decoded file")
	}

	return &decodeResult{OutputPath: out, Size: len(result.Data), Result: result}, nil
}

// defaultDecodedName prefers the file name recorded at encode time and falls
// back to the sequence file's base name
func defaultDecodedName(dnaPath string, md *codec.Metadata) string {
	name := md.OriginalFileName
	if name == "" {
		name = trimExt(filepath.Base(dnaPath))
	}
	return "decoded_" + filepath.Base(name)
}
