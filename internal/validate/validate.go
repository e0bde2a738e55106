// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate classifies candidate files against the pipeline's type
// and size policy. Validation is binary per file: a file is accepted whole
// or rejected with a reason, and each file is judged independently of the
// rest of its batch.
package validate

import (
	"fmt"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/heifconv/pkg/types"
)

// ValidationError reports why a candidate file was rejected. The message
// always names the file and the specific violated constraint.
type ValidationError struct {
	// Name is the rejected file's display name.
	Name string

	// Reason describes the violated constraint.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Validate checks one candidate file against the policy. It returns nil
// when the file is accepted, or a *ValidationError when it is rejected.
func Validate(f types.CandidateFile, p types.Policy) error {
	if !slices.Contains(p.AcceptedTypes, f.MediaType) {
		return &ValidationError{
			Name:   f.Name,
			Reason: fmt.Sprintf("media type %q is not supported", f.MediaType),
		}
	}

	if f.Size() > p.MaxFileSize {
		return &ValidationError{
			Name:   f.Name,
			Reason: fmt.Sprintf("file is %d bytes, over the %d byte limit", f.Size(), p.MaxFileSize),
		}
	}

	if p.SniffContent {
		if detected := mimetype.Detect(f.Data); !detected.Is(f.MediaType) {
			return &ValidationError{
				Name:   f.Name,
				Reason: fmt.Sprintf("content is %s, not the declared %q", detected.String(), f.MediaType),
			}
		}
	}

	return nil
}
