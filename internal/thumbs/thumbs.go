// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package thumbs builds low-cost preview blobs for accepted files. All
// previews for a batch are requested concurrently, and the resulting list
// is published only once the whole set has resolved, so consumers see a
// stable list rather than a flickering partial one.
package thumbs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pdiddy/heifconv/internal/codec"
	"github.com/pdiddy/heifconv/internal/handle"
	"github.com/pdiddy/heifconv/pkg/types"
)

// previewMaxDim bounds the longest side of a preview image.
const previewMaxDim = 256

// Pipeline maps accepted files to preview handles.
type Pipeline struct {
	codec   codec.Adapter
	handles *handle.Manager
	quality float64
	log     *slog.Logger
}

// New creates a preview pipeline. The quality hint is deliberately lower
// than the full-output hint, trading fidelity for latency.
func New(c codec.Adapter, h *handle.Manager, quality float64, log *slog.Logger) *Pipeline {
	return &Pipeline{codec: c, handles: h, quality: quality, log: log}
}

// Build produces one AcceptedItem per input file, in input order. Each
// file's preview is requested on its own goroutine; a failed preview
// leaves that item without a thumbnail handle and never blocks or fails
// the rest of the batch.
func (p *Pipeline) Build(ctx context.Context, files []types.CandidateFile) []types.AcceptedItem {
	items := make([]types.AcceptedItem, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		items[i] = types.AcceptedItem{File: f}

		wg.Add(1)
		go func(i int, f types.CandidateFile) {
			defer wg.Done()

			opts := codec.Options{Quality: p.quality, MaxDim: previewMaxDim}
			blob, err := p.codec.Encode(ctx, f.Data, types.FormatJPEG, opts)
			if err != nil {
				p.log.Warn("preview generation failed", "file", f.Name, "error", err)
				return
			}
			items[i].Thumbnail = p.handles.Create(blob)
		}(i, f)
	}
	wg.Wait()

	return items
}
