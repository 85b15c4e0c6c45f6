// Package llmutils is the synthesizer utility package
package llmutils

import (
	"fmt"
	"time"

	"github.com/recallhq/recall/pkg/llm"
	"github.com/recallhq/recall/pkg/llm/ollama"
	"github.com/recallhq/recall/pkg/llm/openai"
)

type NewSynthesizerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Timeout      time.Duration
}

// NewSynthesizer builds a synthesizer for the configured provider. The
// provider type "none" (or empty) disables answer synthesis and returns nil.
func NewSynthesizer(o *NewSynthesizerOpts) (llm.Synthesizer, error) {
	switch o.ProviderType {
	case "", "none":
		return nil, nil
	case "ollama":
		return ollama.NewSynthesizer(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	case "openai":
		return openai.NewSynthesizer(openai.Config{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
