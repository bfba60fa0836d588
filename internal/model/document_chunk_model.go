package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId     uuid.UUID         `gorm:"type:uuid;not null;index"`
	OwnerId        uuid.UUID         `gorm:"type:uuid;not null;index"`
	DocumentType   string            `gorm:"type:varchar(32);not null;index"`
	Visibility     string            `gorm:"type:varchar(16);not null;default:'private'"`
	Content        string            `gorm:"type:text"`
	ChunkIndex     int               `gorm:"default:0"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // nomic-embed-text
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt    `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
