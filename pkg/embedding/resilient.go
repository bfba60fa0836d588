package embedding

import (
	"context"
	"fmt"

	"study-assistant-be/pkg/resilience"
)

// ResilientProvider retries transient embedding failures with bounded backoff.
type ResilientProvider struct {
	inner EmbeddingProvider
	retry resilience.RetryConfig
}

func NewResilientProvider(inner EmbeddingProvider, retry resilience.RetryConfig) *ResilientProvider {
	return &ResilientProvider{inner: inner, retry: retry}
}

func (p *ResilientProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	resp, err := resilience.Retry(ctx, p.retry, func(ctx context.Context) (*EmbeddingResponse, error) {
		return p.inner.Generate(ctx, text, taskType)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	return resp, nil
}
