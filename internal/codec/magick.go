// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/heifconv/pkg/types"
)

// defaultBinary is the ImageMagick entry point looked up on PATH when the
// configuration does not name one.
const defaultBinary = "magick"

// minQualityPercent keeps a clamped-to-zero hint from producing an invalid
// encoder setting.
const minQualityPercent = 1

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// MagickCodec encodes blobs by piping them through an ImageMagick binary
// (stdin in, stdout out), the same way the original capability is driven.
type MagickCodec struct {
	bin     string
	timeout time.Duration
	exec    executor
}

// NewMagickCodec creates a codec backed by the configured binary. It
// verifies the binary exists on PATH before returning.
func NewMagickCodec(cfg types.CodecConfig) (*MagickCodec, error) {
	return newMagickCodec(cfg, &osExecutor{})
}

func newMagickCodec(cfg types.CodecConfig, ex executor) (*MagickCodec, error) {
	bin := cfg.Binary
	if bin == "" {
		bin = defaultBinary
	}
	if _, err := ex.LookPath(bin); err != nil {
		return nil, fmt.Errorf("codec binary %q not available: %w", bin, err)
	}
	return &MagickCodec{bin: bin, timeout: cfg.Timeout, exec: ex}, nil
}

// Encode pipes src through the codec binary and returns the encoded output.
func (m *MagickCodec) Encode(ctx context.Context, src []byte, format types.OutputFormat, opts Options) ([]byte, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var out, errOut bytes.Buffer
	args := encodeArgs(format, opts)
	if err := m.exec.RunPiped(ctx, m.bin, args, bytes.NewReader(src), &out, &errOut); err != nil {
		cause := err
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			cause = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &Error{Format: format, Err: cause}
	}

	if out.Len() == 0 {
		return nil, &Error{Format: format, Err: fmt.Errorf("codec produced empty output")}
	}
	return out.Bytes(), nil
}

// encodeArgs builds the command line for one encode: read HEIC from stdin,
// optionally bound the longest side, set quality, write the target format
// to stdout.
func encodeArgs(format types.OutputFormat, opts Options) []string {
	args := []string{"heic:-"}
	if opts.MaxDim > 0 {
		dim := strconv.Itoa(opts.MaxDim)
		args = append(args, "-thumbnail", dim+"x"+dim)
	}
	args = append(args, "-quality", strconv.Itoa(qualityPercent(opts.Quality)))
	args = append(args, string(format)+":-")
	return args
}

// qualityPercent maps the [0, 1] hint onto ImageMagick's 1-100 scale.
func qualityPercent(q float64) int {
	if q > 1 {
		q = 1
	}
	p := int(q * 100)
	if p < minQualityPercent {
		return minQualityPercent
	}
	return p
}
