// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the domain items and configuration shared across
// the conversion pipeline stages.
package types

// Handle is a short-lived, process-local reference to an in-memory binary
// blob. The zero value means "no handle". Handles are issued and revoked by
// the handle manager; every issued handle must be revoked exactly once.
type Handle string

// Valid reports whether h refers to an issued handle.
func (h Handle) Valid() bool { return h != "" }

// CandidateFile is an opaque binary blob offered for conversion. It is
// immutable once admitted into a batch.
type CandidateFile struct {
	// Name is the display name of the file (e.g. "IMG_0042.HEIC").
	Name string

	// MediaType is the media type declared by the ingestion surface
	// (e.g. "image/heic"). Validation matches it against the allow-list
	// exactly as declared.
	MediaType string

	// Data is the raw file content.
	Data []byte
}

// Size returns the byte length of the file content.
func (c CandidateFile) Size() int64 { return int64(len(c.Data)) }

// AcceptedItem wraps a validated CandidateFile together with an optional
// preview handle. An item whose thumbnail generation failed still exists;
// it simply carries no handle and displays as a placeholder.
type AcceptedItem struct {
	File CandidateFile

	// Thumbnail references the preview blob, or the zero Handle when
	// preview generation failed for this file.
	Thumbnail Handle
}

// HasThumbnail reports whether a preview was produced for this item.
func (a AcceptedItem) HasThumbnail() bool { return a.Thumbnail.Valid() }

// ConvertedItem is one successful full-quality conversion result.
type ConvertedItem struct {
	// ID is unique within a run, derived from the output name plus a
	// monotonic disambiguator, so items can be displayed keyed and
	// downloaded independently.
	ID string

	// Name is the output file name, with the source extension replaced
	// by the target format's extension.
	Name string

	// Handle references the output blob in the handle manager.
	Handle Handle

	// Data is the encoded output.
	Data []byte

	// Source is the originating candidate file.
	Source CandidateFile
}
