package testutils

import (
	"context"
	"fmt"

	"github.com/recallhq/recall/pkg/llm"
)

// MockSynthesizer is a test synthesizer with canned answers.
type MockSynthesizer struct {
	// Answer is returned for every query.
	Answer string

	// Fail makes every call fail with ErrProviderUnavailable.
	Fail bool

	// Calls counts Synthesize invocations.
	Calls int
}

func (m *MockSynthesizer) Synthesize(_ context.Context, query, _ string) (string, error) {
	m.Calls++
	if m.Fail {
		return "", fmt.Errorf("%w: mock synthesizer down", llm.ErrProviderUnavailable)
	}
	if m.Answer != "" {
		return m.Answer, nil
	}
	return "answer for: " + query, nil
}

func (m *MockSynthesizer) Close() error {
	return nil
}
