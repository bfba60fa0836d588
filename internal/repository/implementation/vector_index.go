package implementation

import (
	"context"
	"fmt"

	"study-assistant-be/internal/mapper"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/pkg/rag/retrieval"
	"study-assistant-be/pkg/workflow"
)

// ChunkVectorIndex serves retrieval from the document_chunks table.
type ChunkVectorIndex struct {
	repo   contract.DocumentChunkRepository
	mapper *mapper.DocumentChunkMapper
}

func NewChunkVectorIndex(repo contract.DocumentChunkRepository) *ChunkVectorIndex {
	return &ChunkVectorIndex{repo: repo, mapper: mapper.NewDocumentChunkMapper()}
}

func (i *ChunkVectorIndex) Search(ctx context.Context, vector []float32, filter retrieval.AccessFilter, topK int) ([]workflow.RetrievedChunk, error) {
	scored, err := i.repo.SearchSimilarWithScore(ctx, vector, topK, filter.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("search document chunks: %w", err)
	}

	chunks := make([]workflow.RetrievedChunk, 0, len(scored))
	for rank, s := range scored {
		chunks = append(chunks, i.mapper.ToRetrievedChunk(s.Chunk, s.Similarity, rank))
	}
	return chunks, nil
}
