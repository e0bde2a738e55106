// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/pdiddy/heifconv/internal/archive"
	"github.com/pdiddy/heifconv/internal/codec"
	"github.com/pdiddy/heifconv/internal/handle"
	"github.com/pdiddy/heifconv/internal/thumbs"
	"github.com/pdiddy/heifconv/internal/validate"
	"github.com/pdiddy/heifconv/pkg/types"
)

// State identifies where the pipeline is in its lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StatePopulated    State = "populated"
	StateThumbnailing State = "thumbnailing"
	StateReady        State = "ready"
	StateConverting   State = "converting"
	StateConverted    State = "converted"
	StateBundling     State = "bundling"
)

// Controller orchestrates the pipeline and owns the authoritative lists:
// accepted items, converted items, the outstanding handle set, and the
// single latest-wins error message. All mutation funnels through the
// controller's lock (single-writer discipline); no other component mutates
// these lists.
type Controller struct {
	policy   types.Policy
	thumbs   *thumbs.Pipeline
	conv     *Converter
	archiver archive.Archiver
	handles  *handle.Manager
	rec      Recorder
	log      *slog.Logger
	progress io.Writer

	mu        sync.Mutex
	state     State
	accepted  []types.AcceptedItem
	converted []types.ConvertedItem
	lastErr   string
	busy      bool
	// gen invalidates in-flight runs: Clear bumps it, and a run whose
	// snapshot generation is stale discards its results instead of
	// publishing them.
	gen int
}

// NewController wires the pipeline components together. rec may be nil to
// disable outcome recording; progress may be nil to silence per-file lines.
func NewController(policy types.Policy, cd codec.Adapter, ar archive.Archiver, h *handle.Manager, rec Recorder, log *slog.Logger, progress io.Writer) *Controller {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Controller{
		policy:   policy,
		thumbs:   thumbs.New(cd, h, policy.ThumbnailQuality, log),
		conv:     NewConverter(cd, h, policy.OutputQuality, log),
		archiver: ar,
		handles:  h,
		rec:      rec,
		log:      log,
		progress: progress,
		state:    StateIdle,
	}
}

// AddFiles validates the candidates, appends the accepted ones to the
// batch (never replacing what is already there), and builds their previews
// before publishing. Rejections are reported per file and never abort the
// rest of the batch.
func (c *Controller) AddFiles(ctx context.Context, files []types.CandidateFile) {
	c.mu.Lock()
	c.lastErr = ""

	var admitted []types.CandidateFile
	for _, f := range files {
		if err := validate.Validate(f, c.policy); err != nil {
			c.lastErr = err.Error()
			c.log.Warn("file rejected", "file", f.Name, "error", err)
			if verr, ok := err.(*validate.ValidationError); ok && c.rec != nil {
				c.rec.RecordRejected(verr.Name, verr.Reason)
			}
			continue
		}
		if c.rec != nil {
			c.rec.RecordAccepted(f.Name, f.Size())
		}
		admitted = append(admitted, f)
	}

	if len(admitted) == 0 {
		c.mu.Unlock()
		return
	}

	// Populated is transient: thumbnailing starts automatically on add.
	c.state = StateThumbnailing
	c.busy = true
	gen := c.gen
	c.mu.Unlock()

	items := c.thumbs.Build(ctx, admitted)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if gen != c.gen {
		// The batch was cleared while previews were in flight; drop the
		// results and release their handles.
		c.revokeThumbnails(items)
		return
	}
	c.accepted = append(c.accepted, items...)
	c.state = StateReady
}

// Convert runs full-quality conversion over the accepted list. It is a
// no-op while the list is empty or another run is in flight. Handles from
// a previous run are revoked before the new run starts so repeated runs do
// not leak.
func (c *Controller) Convert(ctx context.Context) {
	c.mu.Lock()
	if c.busy || len(c.accepted) == 0 {
		c.mu.Unlock()
		return
	}
	c.lastErr = ""
	c.revokeConverted()
	c.converted = nil
	c.state = StateConverting
	c.busy = true
	gen := c.gen
	items := append([]types.AcceptedItem(nil), c.accepted...)
	format := c.policy.OutputFormat
	c.mu.Unlock()

	converted, failures := c.conv.ConvertAll(ctx, items, format, c.progress)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if gen != c.gen {
		for _, it := range converted {
			c.mustRevoke(it.Handle)
		}
		return
	}

	for _, f := range failures {
		c.lastErr = f.Error()
	}
	if c.rec != nil {
		for _, it := range converted {
			c.rec.RecordConverted(it.Source.Name, it.Name, len(it.Data))
		}
		for _, f := range failures {
			c.rec.RecordFailed(f.Name, f.Err)
		}
	}
	c.converted = converted
	c.state = StateConverted
	c.log.Info("conversion run finished",
		"converted", len(converted), "failed", len(failures),
		"outputs", lo.Map(converted, func(it types.ConvertedItem, _ int) string { return it.Name }))
}

// DownloadAll bundles every converted output into a single archive blob.
// It is a no-op while a run is in flight and rejects an empty converted
// set; a failed bundle surfaces one batch-level error and no partial
// archive.
func (c *Controller) DownloadAll() ([]byte, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, nil
	}
	if len(c.converted) == 0 {
		c.mu.Unlock()
		return nil, archive.ErrNothingToBundle
	}
	c.lastErr = ""
	c.state = StateBundling
	c.busy = true
	items := append([]types.ConvertedItem(nil), c.converted...)
	c.mu.Unlock()

	blob, err := c.archiver.Bundle(items)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.state = StateConverted
	if err != nil {
		c.lastErr = err.Error()
		return nil, err
	}
	return blob, nil
}

// SaveItem hands one converted output to sink for saving, identified by
// item ID. A transient handle is created for the duration of the save and
// revoked once the sink returns.
func (c *Controller) SaveItem(id string, sink func(name string, blob []byte) error) error {
	c.mu.Lock()
	item, found := lo.Find(c.converted, func(it types.ConvertedItem) bool { return it.ID == id })
	c.mu.Unlock()
	if !found {
		return fmt.Errorf("no converted item with id %q", id)
	}

	h := c.handles.Create(item.Data)
	defer c.mustRevoke(h)

	blob, _ := c.handles.Resolve(h)
	return sink(item.Name, blob)
}

// Clear returns the pipeline to Idle from any state: every outstanding
// handle for accepted and converted items is revoked exactly once, the
// lists are reset, and the error message is dropped. Clearing an already
// cleared batch is safe; there is nothing left to revoke.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.revokeThumbnails(c.accepted)
	c.revokeConverted()
	c.accepted = nil
	c.converted = nil
	c.lastErr = ""
	c.state = StateIdle
	c.gen++
}

// State returns the current pipeline state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AcceptedItems returns a snapshot of the accepted list.
func (c *Controller) AcceptedItems() []types.AcceptedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.AcceptedItem(nil), c.accepted...)
}

// ConvertedItems returns a snapshot of the converted list.
func (c *Controller) ConvertedItems() []types.ConvertedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ConvertedItem(nil), c.converted...)
}

// LastError returns the most recent user-facing error message, or the
// empty string when the last operation finished clean.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// revokeThumbnails releases the preview handles of the given items.
// Callers hold c.mu.
func (c *Controller) revokeThumbnails(items []types.AcceptedItem) {
	for _, it := range items {
		if it.HasThumbnail() {
			c.mustRevoke(it.Thumbnail)
		}
	}
}

// revokeConverted releases the output handles of the converted list.
// Callers hold c.mu.
func (c *Controller) revokeConverted() {
	for _, it := range c.converted {
		c.mustRevoke(it.Handle)
	}
}

// mustRevoke releases a handle the controller tracks as live. A failure
// here means the exactly-once revocation discipline was broken somewhere.
func (c *Controller) mustRevoke(h types.Handle) {
	if err := c.handles.Revoke(h); err != nil {
		c.log.Error("handle accounting violation", "error", err)
	}
}
