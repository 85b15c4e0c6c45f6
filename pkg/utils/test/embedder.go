package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/recallhq/recall/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu         sync.Mutex
	Embeddings map[string][]float32

	// Dimension is the width of generated default embeddings.
	Dimension int

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Unavailable makes every call fail with ErrProviderUnavailable.
	// FailuresLeft limits how many calls fail; 0 with Unavailable set
	// means fail forever.
	Unavailable  bool
	FailuresLeft int

	// Calls counts every Embed and EmbedBatch invocation.
	Calls int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dimension:  dimension,
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if err := m.fail(text); err != nil {
		return nil, err
	}
	return m.lookup(text), nil
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := m.fail(text); err != nil {
			return nil, err
		}
		out[i] = m.lookup(text)
	}
	return out, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

func (m *MockEmbedder) fail(text string) error {
	if m.Unavailable {
		if m.FailuresLeft > 0 {
			m.FailuresLeft--
			if m.FailuresLeft == 0 {
				m.Unavailable = false
			}
		}
		return fmt.Errorf("%w: mock provider down", embeddings.ErrProviderUnavailable)
	}
	if m.FailOn != "" && text == m.FailOn {
		return fmt.Errorf("mock embedding failure for: %s", text)
	}
	return nil
}

func (m *MockEmbedder) lookup(text string) []float32 {
	if emb, ok := m.Embeddings[text]; ok {
		return emb
	}

	// Deterministic default: hash the text into a spread-out vector so
	// distinct inputs don't collide.
	emb := make([]float32, m.Dimension)
	var h uint32 = 2166136261
	for _, b := range []byte(text) {
		h = (h ^ uint32(b)) * 16777619
	}
	for i := range emb {
		h = h*1664525 + 1013904223
		emb[i] = float32(h%1000)/1000.0 - 0.5
	}
	return emb
}
