// Package embeddings defines the embedding provider adapter.
package embeddings

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned when the embedding provider cannot be
// reached or rejects the call. Retryable with backoff; see Retrying.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Embedder provides text embedding capabilities. Implementations must be
// deterministic for identical input so content dedup stays meaningful, and
// hold no local state beyond connection plumbing.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts into embeddings, one per input,
	// in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
