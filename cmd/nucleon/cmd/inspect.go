/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/nucleon/pkg/codec"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <metadata-file>",
	Short: "Summarize a metadata record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		md, err := readMetadata(args[0])
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		printMetadata(cmd.OutOrStdout(), md)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printMetadata(w io.Writer, md *codec.Metadata) {
	name := md.OriginalFileName
	if name == "" {
		name = "(unknown)"
	}

	fmt.Fprintf(w, "File:            %s\n", name)
	fmt.Fprintf(w, "Original size:   %d bytes\n", md.OriginalSize)
	fmt.Fprintf(w, "Processed size:  %d bytes\n", md.ProcessedSize)
	fmt.Fprintf(w, "Sequence length: %d nucleotides\n", md.DNASequenceLength)
	fmt.Fprintf(w, "Compression:     %s\n", onOff(md.Config.UseCompression))
	if md.HuffmanInfo != nil {
		fmt.Fprintf(w, "  Code table:    %d symbols\n", len(md.HuffmanInfo.Codes))
		fmt.Fprintf(w, "  Padding:       %d bits\n", md.HuffmanInfo.Padding)
	}
	fmt.Fprintf(w, "Encryption:      %s\n", onOff(md.Config.UseEncryption))
	fmt.Fprintf(w, "Correction:      %s\n", onOff(md.Config.UseErrorCorrection))
	if md.Config.UseErrorCorrection {
		fmt.Fprintf(w, "  Parity:        %d symbols per block\n", md.Config.ECCSymbols)
	}
	if md.PayloadDigest != "" {
		fmt.Fprintf(w, "Digest:          %s\n", md.PayloadDigest)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
