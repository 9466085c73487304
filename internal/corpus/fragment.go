// Package corpus defines document fragments, the unit of text that
// generation and relationship discovery operate on.
package corpus

import "strings"

// Fragment is a passage of source text. Fragments are chunked upstream;
// this system treats the content as opaque text.
type Fragment struct {
	// ID uniquely identifies the fragment within its corpus.
	ID string `json:"id"`

	// Content is the passage text.
	Content string `json:"content"`

	// Source identifies where the fragment came from (path, URL, title).
	Source string `json:"source,omitempty"`

	// Metadata carries arbitrary upstream annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsEmpty reports whether the fragment has no usable content.
func (f Fragment) IsEmpty() bool {
	return strings.TrimSpace(f.Content) == ""
}

// Validate checks that the fragment can be processed.
func (f Fragment) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return errMissingID
	}
	if f.IsEmpty() {
		return errMissingContent
	}
	return nil
}
