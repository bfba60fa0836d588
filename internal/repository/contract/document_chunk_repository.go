package contract

import (
	"context"

	"study-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredDocumentChunk wraps DocumentChunk with its cosine similarity to the query vector.
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64
}

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindByDocumentId(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, ownerId uuid.UUID) (int64, error)
	// SearchSimilarWithScore returns the closest chunks the owner may read: their own
	// chunks and every public one, best first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, ownerId uuid.UUID) ([]*ScoredDocumentChunk, error)
}
