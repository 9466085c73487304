// Package llm provides the text completion capability used by the
// evaluation, generation, and relationship packages. The backend is
// abstract: anything that turns a prompt into text can satisfy Client.
package llm

import "context"

// Client is the interface for the completion backend.
type Client interface {
	// Complete sends a prompt and returns the full reply text. The reply
	// may contain prose or markdown fences around any JSON — callers must
	// not assume a clean JSON-only body.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// Stream sends a prompt and invokes fn for each incremental token.
	// A non-nil error from fn aborts the stream and is returned.
	Stream(ctx context.Context, prompt string, opts Options, fn func(token string) error) error

	// Close releases backend resources.
	Close() error
}

// Options holds per-call generation parameters.
type Options struct {
	Temperature  float64
	TopP         float64
	MaxTokens    int
	SystemPrompt string
	Stop         []string

	// JSONMode asks the backend to constrain output to JSON. Backends
	// that cannot enforce it ignore the flag; callers still extract and
	// parse defensively.
	JSONMode bool
}

// DefaultOptions returns conservative defaults for judgment calls:
// low temperature, bounded output.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   1024,
		JSONMode:    true,
	}
}
