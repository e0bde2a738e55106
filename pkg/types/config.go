// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// OutputFormat selects the target raster format for converted files.
type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
)

// ParseOutputFormat maps a user-supplied format name onto an OutputFormat.
// It accepts the canonical names plus the common "jpg" spelling.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want jpeg or png)", s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f OutputFormat) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// MIMEType returns the media type for the format.
func (f OutputFormat) MIMEType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// DefaultMaxFileSize is the per-file size cap, surfaced to the user as
// informational text by the presentation layer.
const DefaultMaxFileSize = 50 << 20 // 50 MiB

// DefaultAcceptedTypes lists the declared media types admitted by
// validation: the primary HEIC/HEIF identifiers plus their sequence
// variants, matched case-sensitively as declared.
var DefaultAcceptedTypes = []string{
	"image/heic",
	"image/heif",
	"image/heic-sequence",
	"image/heif-sequence",
}

// Policy is the pipeline configuration: which files are admitted and how
// previews and outputs are encoded.
type Policy struct {
	// AcceptedTypes is the declared-media-type allow-list.
	AcceptedTypes []string `json:"accepted_types" yaml:"accepted_types"`

	// MaxFileSize is the per-file byte cap. A file exactly at the cap is
	// accepted; one byte over is rejected.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// OutputFormat is the target format for full-quality conversion.
	OutputFormat OutputFormat `json:"output_format" yaml:"output_format"`

	// ThumbnailQuality is the preview quality hint in [0, 1]. It is
	// deliberately lower than OutputQuality, trading fidelity for latency.
	ThumbnailQuality float64 `json:"thumbnail_quality" yaml:"thumbnail_quality"`

	// OutputQuality is the full-quality encode hint in [0, 1].
	OutputQuality float64 `json:"output_quality" yaml:"output_quality"`

	// SniffContent enables content sniffing: a file whose declared type is
	// allowed but whose bytes detect as a different type is rejected.
	SniffContent bool `json:"sniff_content" yaml:"sniff_content"`
}

// DefaultPolicy returns the stock pipeline policy.
func DefaultPolicy() Policy {
	return Policy{
		AcceptedTypes:    DefaultAcceptedTypes,
		MaxFileSize:      DefaultMaxFileSize,
		OutputFormat:     FormatJPEG,
		ThumbnailQuality: 0.2,
		OutputQuality:    0.9,
	}
}

// CodecConfig holds settings for the external codec capability.
type CodecConfig struct {
	// Binary is the codec executable invoked for decode/encode
	// (default "magick").
	Binary string `json:"binary" yaml:"binary"`

	// Timeout bounds a single encode invocation.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Policy Policy      `json:"policy" yaml:"policy"`
	Codec  CodecConfig `json:"codec" yaml:"codec"`
}
