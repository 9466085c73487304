package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client with a call-rate limit. The limit
// protects the shared completion backend from bursty fan-out: callers
// block in Wait until a slot is available or their context is cancelled.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// RateLimit wraps client so that at most callsPerSecond calls per second
// (with the given burst) reach the backend. A zero or negative
// callsPerSecond returns client unchanged.
func RateLimit(client Client, callsPerSecond float64, burst int) Client {
	if callsPerSecond <= 0 {
		return client
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst),
	}
}

// Complete waits for a rate slot, then delegates.
func (c *RateLimitedClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Complete(ctx, prompt, opts)
}

// Stream waits for a rate slot, then delegates.
func (c *RateLimitedClient) Stream(ctx context.Context, prompt string, opts Options, fn func(token string) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.inner.Stream(ctx, prompt, opts, fn)
}

// Close closes the wrapped client.
func (c *RateLimitedClient) Close() error {
	return c.inner.Close()
}
