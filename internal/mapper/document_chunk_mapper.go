package mapper

import (
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/model"
	"study-assistant-be/pkg/workflow"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.DocumentChunk{
		Id:             c.Id,
		DocumentId:     c.DocumentId,
		OwnerId:        c.OwnerId,
		DocumentType:   c.DocumentType,
		Visibility:     c.Visibility,
		Content:        c.Content,
		ChunkIndex:     c.ChunkIndex,
		Metadata:       map[string]interface{}(c.Metadata),
		EmbeddingValue: c.EmbeddingValue.Slice(),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      c.DeletedAt.Valid,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	visibility := c.Visibility
	if visibility == "" {
		visibility = string(workflow.VisibilityPrivate)
	}

	return &model.DocumentChunk{
		Id:             c.Id,
		DocumentId:     c.DocumentId,
		OwnerId:        c.OwnerId,
		DocumentType:   c.DocumentType,
		Visibility:     visibility,
		Content:        c.Content,
		ChunkIndex:     c.ChunkIndex,
		Metadata:       datatypes.JSONMap(c.Metadata),
		EmbeddingValue: pgvector.NewVector(c.EmbeddingValue),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

// ToRetrievedChunk converts a scored chunk into the pipeline's view of it. rank is the
// position the index returned it at.
func (m *DocumentChunkMapper) ToRetrievedChunk(c *entity.DocumentChunk, similarity float64, rank int) workflow.RetrievedChunk {
	return workflow.RetrievedChunk{
		ChunkID:      c.Id,
		DocumentID:   c.DocumentId,
		OwnerID:      c.OwnerId,
		DocumentType: workflow.DocumentType(c.DocumentType),
		Visibility:   workflow.Visibility(c.Visibility),
		Text:         c.Content,
		Similarity:   similarity,
		Score:        similarity,
		IndexRank:    rank,
	}
}
