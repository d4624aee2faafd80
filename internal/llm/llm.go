// Package llm provides text-generation backends for drafting outreach email.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a backend answers without text.
var ErrEmptyCompletion = errors.New("no completion returned")

// Request is a single-turn generation request.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Options selects and configures a backend.
type Options struct {
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

// New returns the configured backend, or nil when no backend has its
// credentials. An OpenAI-compatible endpoint needs both key and base URL and
// takes precedence over Gemini.
func New(ctx context.Context, opts Options) (Generator, error) {
	if opts.OpenAIKey != "" && opts.OpenAIBaseURL != "" {
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  opts.OpenAIKey,
			BaseURL: opts.OpenAIBaseURL,
			Model:   opts.OpenAIModel,
		}), nil
	}
	if opts.GeminiKey != "" {
		client, err := NewGeminiClient(ctx, opts.GeminiKey, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, nil
}
