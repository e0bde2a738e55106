// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch implements full-quality conversion of accepted files and
// the controller that owns the pipeline's state machine.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/heifconv/internal/codec"
	"github.com/pdiddy/heifconv/internal/handle"
	"github.com/pdiddy/heifconv/pkg/types"
)

// Recorder receives per-item pipeline outcomes. Implementations must be
// safe for use from the pipeline goroutines; a nil Recorder disables
// recording.
type Recorder interface {
	RecordRejected(name, reason string)
	RecordAccepted(name string, size int64)
	RecordConverted(name, outputName string, size int)
	RecordFailed(name string, err error)
}

// Converter turns accepted items into converted outputs, one file at a
// time. Sequential processing is an explicit choice: the codec is the
// bottleneck resource, and one in-flight decode bounds peak memory.
type Converter struct {
	codec   codec.Adapter
	handles *handle.Manager
	quality float64
	log     *slog.Logger

	// seq disambiguates item IDs within a run.
	seq int
}

// NewConverter creates a full-quality batch converter.
func NewConverter(c codec.Adapter, h *handle.Manager, quality float64, log *slog.Logger) *Converter {
	return &Converter{codec: c, handles: h, quality: quality, log: log}
}

// Failure records one file that could not be converted.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("converting %s: %v", f.Name, f.Err) }

func (f Failure) Unwrap() error { return f.Err }

// ConvertAll processes items in list order. Each failure is reported and
// that file omitted from the result; the batch always runs to completion
// (best-effort semantics). Per-file progress lines go to w.
func (c *Converter) ConvertAll(ctx context.Context, items []types.AcceptedItem, format types.OutputFormat, w io.Writer) ([]types.ConvertedItem, []Failure) {
	converted := make([]types.ConvertedItem, 0, len(items))
	var failures []Failure

	for _, it := range items {
		name := it.File.Name

		out, err := c.codec.Encode(ctx, it.File.Data, format, codec.Options{Quality: c.quality})
		if err != nil {
			fmt.Fprintf(w, "failed:    %s (%v)\n", name, err)
			c.log.Warn("conversion failed", "file", name, "error", err)
			failures = append(failures, Failure{Name: name, Err: err})
			continue
		}

		outName := OutputName(name, format)
		c.seq++
		converted = append(converted, types.ConvertedItem{
			ID:     fmt.Sprintf("%s-%d", outName, c.seq),
			Name:   outName,
			Handle: c.handles.Create(out),
			Data:   out,
			Source: it.File,
		})
		fmt.Fprintf(w, "converted: %s -> %s\n", name, outName)
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		len(converted), len(failures), len(items))
	return converted, failures
}
