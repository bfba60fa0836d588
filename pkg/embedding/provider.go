package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Task types hint the backend about how the vector will be used. Backends without
// task-specific models ignore them.
const (
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// ErrEmbeddingUnavailable wraps every failure that survives the retry budget.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

// Vector is a convenience wrapper returning the raw values.
func Vector(ctx context.Context, p EmbeddingProvider, text, taskType string) ([]float32, error) {
	resp, err := p.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingUnavailable)
	}
	return resp.Embedding.Values, nil
}
