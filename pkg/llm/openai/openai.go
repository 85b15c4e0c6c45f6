// Package openai implements the Synthesizer adapter on the OpenAI chat API.
package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/recallhq/recall/pkg/llm"
)

// DefaultModel is the default OpenAI chat model for answer synthesis.
const DefaultModel = goopenai.GPT4oMini

// Synthesizer wraps the OpenAI chat completions API.
type Synthesizer struct {
	client *goopenai.Client
	model  string
}

// Config holds configuration for the OpenAI synthesizer.
type Config struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// NewSynthesizer creates a synthesizer backed by the OpenAI API.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Synthesizer{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Synthesize answers the query from the supplied passage.
func (s *Synthesizer) Synthesize(ctx context.Context, query, passage string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: s.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: llm.Prompt(query, passage)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", llm.ErrProviderUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close releases resources held by the synthesizer.
func (s *Synthesizer) Close() error {
	return nil
}

var _ llm.Synthesizer = (*Synthesizer)(nil)
