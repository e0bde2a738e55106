// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/heifconv/pkg/types"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		name   string
		format types.OutputFormat
		want   string
	}{
		{"photo.heic", types.FormatJPEG, "photo.jpg"},
		{"photo.heif", types.FormatJPEG, "photo.jpg"},
		{"photo.heic", types.FormatPNG, "photo.png"},
		{"IMG_0042.HEIC", types.FormatJPEG, "IMG_0042.jpg"},
		{"IMG_0042.HeIf", types.FormatPNG, "IMG_0042.png"},
		// Only a trailing source extension is replaced.
		{"a.heic.heic", types.FormatJPEG, "a.heic.jpg"},
		// A name without the source extension passes through unchanged.
		{"photo", types.FormatJPEG, "photo"},
		{"photo.png", types.FormatJPEG, "photo.png"},
		{"photo.heic.bak", types.FormatJPEG, "photo.heic.bak"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"->"+string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(tt.name, tt.format))
		})
	}
}

func TestOutputName_NeverKeepsSourceExtension(t *testing.T) {
	for _, name := range []string{"a.heic", "b.HEIF", "c.HeIc"} {
		got := OutputName(name, types.FormatJPEG)
		assert.NotContains(t, got, ".heic")
		assert.NotContains(t, got, ".HEIF")
		assert.Contains(t, got, ".jpg")
	}
}
