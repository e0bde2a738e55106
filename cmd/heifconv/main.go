// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the heifconv CLI. The CLI is a thin
// ingestion surface: it reads candidate files from disk and triggers the
// conversion pipeline; all batch semantics live in the internal packages.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the heifconv CLI.
var rootCmd = &cobra.Command{
	Use:   "heifconv",
	Short: "On-device batch HEIC/HEIF to JPEG/PNG conversion",
	Long: `heifconv converts batches of HEIC/HEIF images into common raster formats
entirely on the local machine: no file ever leaves the device. Candidate
files are validated against a type and size policy, converted one at a
time through the configured codec, and bundled into a single ZIP archive.

Individual failures never abort a batch: a bad file is reported and
skipped, and the rest of the batch completes.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./heifconv.yaml or ~/.config/heifconv/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("heifconv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "heifconv"))
		}
	}

	viper.SetEnvPrefix("HEIFCONV")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
