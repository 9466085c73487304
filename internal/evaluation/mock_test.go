package evaluation

import (
	"context"
	"sync"

	"github.com/qaforge/qa-forge/internal/llm"
)

// mockClient is a scripted completion backend for tests. Replies are
// consumed in order; when the queue is empty, reply is returned. A
// non-nil err fails every call.
type mockClient struct {
	mu      sync.Mutex
	replies []string
	reply   string
	err     error
	calls   int
	prompts []string
}

func (m *mockClient) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, prompt)

	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(m.replies) > 0 {
		next := m.replies[0]
		m.replies = m.replies[1:]
		return next, nil
	}
	return m.reply, nil
}

func (m *mockClient) Stream(ctx context.Context, prompt string, opts llm.Options, fn func(string) error) error {
	reply, err := m.Complete(ctx, prompt, opts)
	if err != nil {
		return err
	}
	return fn(reply)
}

func (m *mockClient) Close() error {
	return nil
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
