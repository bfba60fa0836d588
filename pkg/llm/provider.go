package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSONFormat  bool   // Ask the backend for a JSON-only reply
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithJSONFormat() Option {
	return func(o *Options) {
		o.JSONFormat = true
	}
}

// Apply folds opts over the given defaults.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// TokenSink receives generated text incrementally. Returning an error aborts the stream.
type TokenSink func(chunk string) error

// StreamingProvider is implemented by backends that can emit tokens as they are produced.
// The returned string is the full concatenated reply.
type StreamingProvider interface {
	LLMProvider
	ChatStream(ctx context.Context, history []Message, sink TokenSink, options ...Option) (string, error)
}

// Stream uses the provider's native streaming when available and otherwise emits the
// whole reply as a single chunk.
func Stream(ctx context.Context, p LLMProvider, history []Message, sink TokenSink, options ...Option) (string, error) {
	if sp, ok := p.(StreamingProvider); ok && sink != nil {
		return sp.ChatStream(ctx, history, sink, options...)
	}
	out, err := p.Chat(ctx, history, options...)
	if err != nil {
		return "", err
	}
	if sink != nil && out != "" {
		if err := sink(out); err != nil {
			return "", err
		}
	}
	return out, nil
}
