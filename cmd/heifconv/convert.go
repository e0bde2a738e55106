// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/heifconv/internal/archive"
	"github.com/pdiddy/heifconv/internal/batch"
	"github.com/pdiddy/heifconv/internal/codec"
	"github.com/pdiddy/heifconv/internal/handle"
	"github.com/pdiddy/heifconv/internal/ledger"
	"github.com/pdiddy/heifconv/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert HEIC/HEIF files and bundle the outputs into a ZIP",
	Long: `Convert validates each named file, converts the accepted ones to the
selected output format, and writes a single ZIP archive containing every
successful output. A per-file report of outcomes can be exported as YAML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("format", "jpeg", "output format: jpeg or png")
	convertCmd.Flags().String("out", "converted.zip", "path of the output archive")
	convertCmd.Flags().String("report", "", "write a YAML run report to this path")
	convertCmd.Flags().Float64("quality", 0.9, "output quality hint in [0,1]")
	convertCmd.Flags().Int64("max-file-size", types.DefaultMaxFileSize, "per-file size cap in bytes")
	convertCmd.Flags().Bool("sniff", false, "reject files whose content contradicts their declared type")
	convertCmd.Flags().String("codec-binary", "", "codec executable (default: magick, or codec.binary from config)")
	convertCmd.Flags().Duration("codec-timeout", 2*time.Minute, "per-file codec timeout")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := types.ParseOutputFormat(formatName)
	if err != nil {
		return err
	}

	policy := types.DefaultPolicy()
	policy.OutputFormat = format
	policy.OutputQuality, _ = cmd.Flags().GetFloat64("quality")
	policy.MaxFileSize, _ = cmd.Flags().GetInt64("max-file-size")
	policy.SniffContent, _ = cmd.Flags().GetBool("sniff")

	binary, _ := cmd.Flags().GetString("codec-binary")
	if binary == "" {
		binary = viper.GetString("codec.binary")
	}
	timeout, _ := cmd.Flags().GetDuration("codec-timeout")

	cd, err := codec.NewMagickCodec(types.CodecConfig{Binary: binary, Timeout: timeout})
	if err != nil {
		return err
	}

	led, err := ledger.Open()
	if err != nil {
		return err
	}
	defer led.Close()

	candidates, err := readCandidates(args)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handles := handle.NewManager()
	ctrl := batch.NewController(policy, cd, archive.NewZipBundler(), handles, led, log, os.Stdout)
	defer ctrl.Clear()
	ctx := cmd.Context()

	ctrl.AddFiles(ctx, candidates)
	if len(ctrl.AcceptedItems()) == 0 {
		return fmt.Errorf("no files accepted: %s", ctrl.LastError())
	}

	ctrl.Convert(ctx)

	blob, err := ctrl.DownloadAll()
	if errors.Is(err, archive.ErrNothingToBundle) {
		return fmt.Errorf("no files converted: %s", ctrl.LastError())
	}
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Archive written: %s (%d entries)\n", outPath, len(ctrl.ConvertedItems()))

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := writeReport(led, reportPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", reportPath)
	}

	return nil
}

// readCandidates loads each named file into a CandidateFile with its
// declared media type derived from the file extension.
func readCandidates(paths []string) ([]types.CandidateFile, error) {
	candidates := make([]types.CandidateFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		candidates = append(candidates, types.CandidateFile{
			Name:      filepath.Base(p),
			MediaType: declaredType(p),
			Data:      data,
		})
	}
	return candidates, nil
}

// declaredType maps a file extension onto the media type the ingestion
// surface would declare for it. Unknown extensions declare an empty type
// and fail validation with a clear reason.
func declaredType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return ""
	}
}

func writeReport(led *ledger.Ledger, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := led.WriteReport(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
