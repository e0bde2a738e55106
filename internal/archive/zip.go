// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive bundles converted outputs into one downloadable blob.
// The archive-writer capability sits behind the Archiver interface; bundling
// failures are batch-level, and a partial archive is never returned.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/pdiddy/heifconv/pkg/types"
)

// ErrNothingToBundle is returned when the converted set is empty.
var ErrNothingToBundle = errors.New("nothing to bundle")

// ArchiveError reports a failed bundling run.
type ArchiveError struct {
	// Entry is the output name being written when the failure occurred,
	// or empty when the archive itself failed to finalize.
	Entry string

	// Err is the underlying cause from the archive writer.
	Err error
}

func (e *ArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("bundling %s: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("bundling archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Archiver serializes a set of converted items into one archive blob.
type Archiver interface {
	Bundle(items []types.ConvertedItem) ([]byte, error)
}

// ZipBundler writes items into a ZIP container. Entries are keyed by output
// name; name uniqueness must already hold upstream, duplicates are not
// deduplicated here.
type ZipBundler struct{}

// NewZipBundler returns a ZIP-backed archiver.
func NewZipBundler() *ZipBundler { return &ZipBundler{} }

// Bundle writes each item's output blob into a ZIP archive and returns the
// archive bytes. An empty input set is rejected with ErrNothingToBundle.
func (z *ZipBundler) Bundle(items []types.ConvertedItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, ErrNothingToBundle
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	for _, it := range items {
		w, err := zw.Create(it.Name)
		if err != nil {
			return nil, &ArchiveError{Entry: it.Name, Err: err}
		}
		if _, err := w.Write(it.Data); err != nil {
			return nil, &ArchiveError{Entry: it.Name, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &ArchiveError{Err: err}
	}
	return buf.Bytes(), nil
}
