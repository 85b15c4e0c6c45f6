// Package llm defines the answer synthesizer adapter. Synthesis is strictly
// optional: a query that cannot reach the model still returns its search
// results, just without an answer.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrProviderUnavailable is returned when the model cannot be reached or
// rejects the call.
var ErrProviderUnavailable = errors.New("llm provider unavailable")

// Synthesizer turns a query plus a retrieved passage into a short
// natural-language answer.
type Synthesizer interface {
	// Synthesize answers the query from the supplied passage.
	Synthesize(ctx context.Context, query, passage string) (string, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Prompt renders the synthesis prompt shared by all providers.
func Prompt(query, passage string) string {
	return fmt.Sprintf(`You are a search answer generator. Answer the user's question using only the passage below.
Be concise and factual. If the passage does not answer the question, say so plainly.

Question: %s

Passage:
%s`, query, passage)
}
