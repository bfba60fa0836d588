package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentChunk struct {
	Id             uuid.UUID
	DocumentId     uuid.UUID
	OwnerId        uuid.UUID
	DocumentType   string
	Visibility     string
	Content        string
	ChunkIndex     int
	Metadata       map[string]interface{}
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
