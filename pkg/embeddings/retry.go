package embeddings

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultAttempts is the bounded number of tries per provider call.
	DefaultAttempts = 3

	// DefaultBackoff is the initial delay between attempts; it doubles
	// after every failure.
	DefaultBackoff = 500 * time.Millisecond
)

// Retrying wraps an Embedder with bounded retry and exponential backoff.
// Only provider failures are retried; context cancellation and local errors
// surface immediately.
type Retrying struct {
	inner    Embedder
	attempts int
	backoff  time.Duration
}

// WithRetry decorates an embedder with the default retry policy.
func WithRetry(inner Embedder) *Retrying {
	return WithRetryPolicy(inner, DefaultAttempts, DefaultBackoff)
}

// WithRetryPolicy decorates an embedder with an explicit attempt count and
// initial backoff.
func WithRetryPolicy(inner Embedder, attempts int, backoff time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{inner: inner, attempts: attempts, backoff: backoff}
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var emb []float32
	err := r.do(ctx, func() error {
		var innerErr error
		emb, innerErr = r.inner.Embed(ctx, text)
		return innerErr
	})
	return emb, err
}

func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var embs [][]float32
	err := r.do(ctx, func() error {
		var innerErr error
		embs, innerErr = r.inner.EmbedBatch(ctx, texts)
		return innerErr
	})
	return embs, err
}

func (r *Retrying) do(ctx context.Context, call func() error) error {
	delay := r.backoff
	var err error

	for attempt := 0; attempt < r.attempts; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if !errors.Is(err, ErrProviderUnavailable) {
			return err
		}
		if attempt == r.attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}

func (r *Retrying) Close() error {
	return r.inner.Close()
}

var _ Embedder = (*Retrying)(nil)
