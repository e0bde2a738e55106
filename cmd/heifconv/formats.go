// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/heifconv/pkg/types"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List accepted input types and available output formats",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Accepted input types:")
		for _, t := range types.DefaultAcceptedTypes {
			fmt.Fprintf(out, "  %s\n", t)
		}
		fmt.Fprintf(out, "Maximum file size: %d MiB\n\n", types.DefaultMaxFileSize>>20)

		fmt.Fprintln(out, "Output formats:")
		for _, f := range []types.OutputFormat{types.FormatJPEG, types.FormatPNG} {
			fmt.Fprintf(out, "  %-5s %s (%s)\n", f, f.Extension(), f.MIMEType())
		}
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
