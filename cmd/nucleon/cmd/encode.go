/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/logging"
	"github.com/ssargent/nucleon/pkg/pipeline"
	"go.uber.org/zap"
)

// encodeResult describes the files written by encodeFile
type encodeResult struct {
	SequencePath string
	MetadataPath string
	Metadata     *codec.Metadata
}

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode <file>",
	Short: "Encode a file into a nucleotide sequence",
	Long: `Encode a file into a nucleotide sequence and its metadata record.

Two files are written to the output directory: <name>.dna holding the
sequence and <name>_metadata.json holding everything decode needs except
the password.

Examples:
  nucleon encode report.pdf
  nucleon encode report.pdf --encryption=false --ecc-symbols=10
  nucleon encode photo.jpg --password=secret --out-dir=./sequences`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outDir, _ := cmd.Flags().GetString("out-dir")
		passwordFlag, _ := cmd.Flags().GetString("password")

		stages := stageConfig(cmd, configFrom(cmd).Pipeline)
		password, err := resolvePassword(passwordFlag, stages.UseEncryption)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		logger := loggerFrom(cmd)
		p := pipeline.New(pipeline.WithLogger(logger))

		result, err := encodeFile(p, args[0], outDir, stages, password)
		if err != nil {
			logger.Error("encode failed", zap.String(logging.FieldFileName, args[0]), zap.Error(err))
			cmd.Printf("Error encoding %s: %v\n", args[0], err)
			os.Exit(1)
		}

		cmd.Printf("✅ Encoded %s (%d bytes)\n", args[0], result.Metadata.OriginalSize)
		cmd.Printf("Sequence: %s (%d nucleotides)\n", result.SequencePath, result.Metadata.DNASequenceLength)
		cmd.Printf("Metadata: %s\n", result.MetadataPath)
		if result.Metadata.Config.UseEncryption {
			cmd.Printf("Keep your password safe, it is not stored in the metadata.\n")
		}
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	addStageFlags(encodeCmd)
	encodeCmd.Flags().StringP("out-dir", "o", ".", "Directory for the sequence and metadata files")
}

// encodeFile runs the pipeline over inputPath and writes <base>.dna and
// <base>_metadata.json into outDir
func encodeFile(p *pipeline.Pipeline, inputPath, outDir string, stages codec.Config, password string) (*encodeResult, error) {
	data, err := os.ReadFile(inputPath) // #nosec G304 -- path supplied by the user
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", inputPath)
	}

	sequence, md, err := p.Encode(data, stages, password)
	if err != nil {
		return nil, err
	}
	md.OriginalFileName = filepath.Base(inputPath)

	blob, err := codec.NewMetadataCodec().Encode(md)
	if err != nil {
		return nil, err
	}

	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	base := trimExt(md.OriginalFileName)
	result := &encodeResult{
		SequencePath: filepath.Join(outDir, base+".dna"),
		MetadataPath: filepath.Join(outDir, base+"_metadata.json"),
		Metadata:     md,
	}

	if err := os.WriteFile(result.SequencePath, []byte(sequence), 0600); err != nil {
		return nil, errors.Wrap(err, "failed to write sequence file")
	}
	if err := os.WriteFile(result.MetadataPath, blob, 0600); err != nil {
		return nil, errors.Wrap(err, "failed to write metadata file")
	}

	return result, nil
}

func trimExt(name string) string {
	if base := strings.TrimSuffix(name, filepath.Ext(name)); base != "" {
		return base
	}
	return name
}
