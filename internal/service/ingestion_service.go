package service

import (
	"context"
	"fmt"
	"strings"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/unitofwork"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/utils"
	"study-assistant-be/pkg/workflow"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// IngestDocument is one study document to be chunked and indexed.
type IngestDocument struct {
	DocumentId   uuid.UUID             `validate:"required"`
	OwnerId      uuid.UUID             `validate:"required"`
	DocumentType workflow.DocumentType `validate:"required,oneof=notes marking_scheme question_paper"`
	Visibility   workflow.Visibility   `validate:"omitempty,oneof=private public"`
	Title        string
	Content      string `validate:"required"`
	Metadata     map[string]interface{}
}

type IIngestionService interface {
	// Ingest replaces any chunks already stored for the document and returns how many were written.
	Ingest(ctx context.Context, doc IngestDocument) (int, error)
}

type ingestionService struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	validate   *validator.Validate
	chunkSize  int
	overlap    int
	logger     logger.ILogger
}

func NewIngestionService(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, log logger.ILogger) IIngestionService {
	return &ingestionService{
		uowFactory: uowFactory,
		embedder:   embedder,
		validate:   validator.New(),
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		logger:     log,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, doc IngestDocument) (int, error) {
	if err := s.validate.Struct(doc); err != nil {
		return 0, fmt.Errorf("invalid document: %w", err)
	}
	if doc.Visibility == "" {
		doc.Visibility = workflow.VisibilityPrivate
	}

	var chunks []*entity.DocumentChunk
	for _, text := range utils.SplitText(strings.TrimSpace(doc.Content), s.chunkSize, s.overlap) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		vec, err := embedding.Vector(ctx, s.embedder, text, embedding.TaskRetrievalDocument)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", len(chunks), err)
		}
		meta := map[string]interface{}{}
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		if doc.Title != "" {
			meta["title"] = doc.Title
		}
		chunks = append(chunks, &entity.DocumentChunk{
			Id:             uuid.New(),
			DocumentId:     doc.DocumentId,
			OwnerId:        doc.OwnerId,
			DocumentType:   string(doc.DocumentType),
			Visibility:     string(doc.Visibility),
			Content:        text,
			ChunkIndex:     len(chunks),
			Metadata:       meta,
			EmbeddingValue: embedding.Normalize(vec),
		})
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s has no content", doc.DocumentId)
	}

	// The old chunks stay searchable unless the replacement is fully stored.
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.DocumentChunkRepository()
	if err := repo.DeleteByDocumentId(ctx, doc.DocumentId); err != nil {
		return 0, fmt.Errorf("clear previous chunks: %w", err)
	}
	if err := repo.CreateBulk(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("commit chunks: %w", err)
	}

	s.logger.Info("INGEST", "Document indexed", map[string]interface{}{
		"document_id":   doc.DocumentId.String(),
		"document_type": doc.DocumentType,
		"chunks":        len(chunks),
	})
	return len(chunks), nil
}
