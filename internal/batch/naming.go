// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/heifconv/pkg/types"
)

// sourceExtensions are the trailing extensions recognized as the source
// format, matched case-insensitively (primary and vendor variant).
var sourceExtensions = []string{".heic", ".heif"}

// OutputName derives the converted file's name: a trailing source
// extension is replaced by the target format's extension. A name without
// the source extension passes through unchanged; the target extension is
// deliberately not appended (confirmed policy, not an oversight).
func OutputName(name string, format types.OutputFormat) string {
	ext := filepath.Ext(name)
	for _, src := range sourceExtensions {
		if strings.EqualFold(ext, src) {
			return strings.TrimSuffix(name, ext) + format.Extension()
		}
	}
	return name
}
