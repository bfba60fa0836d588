package implementation

import (
	"context"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/mapper"
	"study-assistant-be/internal/model"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return specification.Apply(r.db.WithContext(ctx), specification.ByDocument{DocumentID: documentId}).
		Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) FindByDocumentId(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	err := specification.Apply(r.db.WithContext(ctx),
		specification.ByDocument{DocumentID: documentId},
		specification.InChunkOrder{},
	).Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.DocumentChunk, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, ownerId uuid.UUID) (int64, error) {
	var count int64
	err := specification.Apply(r.db.WithContext(ctx).Model(&model.DocumentChunk{}), specification.OwnedBy{OwnerID: ownerId}).
		Count(&count).Error
	return count, err
}

func (r *DocumentChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, ownerId uuid.UUID) ([]*contract.ScoredDocumentChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	// pgvector's <=> is cosine distance, so similarity is 1 - distance.
	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, 1 - (embedding_value <=> ?) AS similarity", queryVector)
	err := specification.Apply(query,
		specification.ChunkNotDeleted{},
		specification.ReadableBy{OwnerID: ownerId},
		specification.MostSimilarFirst{Limit: limit},
	).Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentChunk, len(results))
	for i := range results {
		scored[i] = &contract.ScoredDocumentChunk{
			Chunk:      r.mapper.ToEntity(&results[i].DocumentChunk),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
