package specification

import (
	"study-assistant-be/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const chunkTable = "document_chunks"

// ChunkNotDeleted filters out soft-deleted chunks. Raw Table() queries bypass the
// gorm soft-delete scope, so the vector search needs it explicitly.
type ChunkNotDeleted struct{}

func (s ChunkNotDeleted) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(chunkTable + ".deleted_at IS NULL")
}

// ReadableBy keeps the requester's own chunks and every public chunk.
type ReadableBy struct {
	OwnerID uuid.UUID
}

func (s ReadableBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("("+chunkTable+".owner_id = ? OR "+chunkTable+".visibility = ?)", s.OwnerID, string(workflow.VisibilityPublic))
}

type ByDocument struct {
	DocumentID uuid.UUID
}

func (s ByDocument) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

type OwnedBy struct {
	OwnerID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type InChunkOrder struct{}

func (s InChunkOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("chunk_index ASC")
}

// MostSimilarFirst orders by the similarity column the vector search selects.
type MostSimilarFirst struct {
	Limit int
}

func (s MostSimilarFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("similarity DESC").Limit(s.Limit)
}
