// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codec is the boundary to the external decode/encode capability.
// The capability is a black box: it decodes the proprietary source format
// and encodes common raster formats. Failure is always returned as a typed
// error carrying the underlying cause; an Adapter never panics.
package codec

import (
	"context"
	"fmt"

	"github.com/pdiddy/heifconv/pkg/types"
)

// Options tunes a single encode call.
type Options struct {
	// Quality is the encode quality hint in [0, 1]. Values outside the
	// range are clamped.
	Quality float64

	// MaxDim, when positive, bounds the output's longest side in pixels.
	// Used for preview generation; zero keeps the source dimensions.
	MaxDim int
}

// Adapter converts a source blob into the target raster format. Callers
// must not assume success: every call site wraps Encode in per-item
// failure isolation.
type Adapter interface {
	Encode(ctx context.Context, src []byte, format types.OutputFormat, opts Options) ([]byte, error)
}

// Error describes a failed decode/encode call.
type Error struct {
	// Format is the requested target format.
	Format types.OutputFormat

	// Err is the underlying cause from the codec capability.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("encoding to %s: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
