package llm

import (
	"context"
	"errors"
	"fmt"

	"study-assistant-be/pkg/resilience"
)

// ErrGenerationFailed is returned once retries are spent or the breaker refuses the call.
var ErrGenerationFailed = errors.New("generation failed")

// ResilientProvider guards a backend with per-call retry and a shared circuit breaker.
type ResilientProvider struct {
	inner   LLMProvider
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

var _ StreamingProvider = &ResilientProvider{}

func NewResilientProvider(inner LLMProvider, breaker *resilience.Breaker, retry resilience.RetryConfig) *ResilientProvider {
	return &ResilientProvider{inner: inner, breaker: breaker, retry: retry}
}

func (p *ResilientProvider) Breaker() *resilience.Breaker { return p.breaker }

func (p *ResilientProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	out, err := resilience.Guarded(ctx, p.breaker, p.retry, func(ctx context.Context) (string, error) {
		return p.inner.Chat(ctx, history, options...)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return out, nil
}

func (p *ResilientProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}}, options...)
}

// ChatStream retries only while nothing has reached the sink. Once a token has been
// delivered a failure is final, so the caller never sees duplicated text.
func (p *ResilientProvider) ChatStream(ctx context.Context, history []Message, sink TokenSink, options ...Option) (string, error) {
	delivered := false
	guardedSink := func(chunk string) error {
		delivered = true
		if sink == nil {
			return nil
		}
		return sink(chunk)
	}

	out, err := resilience.Guarded(ctx, p.breaker, p.retry, func(ctx context.Context) (string, error) {
		out, err := Stream(ctx, p.inner, history, guardedSink, options...)
		if err != nil && delivered {
			return "", resilience.Permanent(err)
		}
		return out, err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return out, nil
}
