package implementation

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/pkg/rag/retrieval"
	"study-assistant-be/pkg/workflow"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

var chunkColumns = []string{
	"id", "document_id", "owner_id", "document_type", "visibility",
	"content", "chunk_index", "metadata", "embedding_value", "similarity",
}

func TestDocumentChunkRepository_SearchSimilarWithScore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentChunkRepository(db)

	owner := uuid.New()
	doc := uuid.New()
	own, public := uuid.New(), uuid.New()

	rows := sqlmock.NewRows(chunkColumns).
		AddRow(own.String(), doc.String(), owner.String(), "marking_scheme", "private",
			"Photosynthesis converts light energy.", 0, []byte(`{"subject":"biology"}`), "[1,0,0]", 0.91).
		AddRow(public.String(), doc.String(), uuid.New().String(), "notes", "public",
			"Chlorophyll absorbs light.", 1, []byte(`{}`), "[0,1,0]", 0.42)

	mock.ExpectQuery(`SELECT document_chunks\.\*, 1 - \(embedding_value <=> \$1\) AS similarity FROM "document_chunks" WHERE .*owner_id = \$2 OR document_chunks\.visibility = \$3.*ORDER BY similarity DESC LIMIT`).
		WillReturnRows(rows)

	scored, err := repo.SearchSimilarWithScore(context.Background(), []float32{1, 0, 0}, 4, owner)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.Equal(t, own, scored[0].Chunk.Id)
	assert.Equal(t, owner, scored[0].Chunk.OwnerId)
	assert.Equal(t, "marking_scheme", scored[0].Chunk.DocumentType)
	assert.Equal(t, []float32{1, 0, 0}, scored[0].Chunk.EmbeddingValue)
	assert.Equal(t, "biology", scored[0].Chunk.Metadata["subject"])
	assert.InDelta(t, 0.91, scored[0].Similarity, 1e-9)

	assert.Equal(t, "public", scored[1].Chunk.Visibility)
	assert.InDelta(t, 0.42, scored[1].Similarity, 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentChunkRepository_SearchSimilarWithScore_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentChunkRepository(db)

	mock.ExpectQuery(`SELECT document_chunks`).WillReturnError(errors.New("connection reset"))

	_, err := repo.SearchSimilarWithScore(context.Background(), []float32{1}, 5, uuid.New())
	assert.EqualError(t, err, "connection reset")
}

type stubChunkRepo struct {
	contract.DocumentChunkRepository
	scored  []*contract.ScoredDocumentChunk
	err     error
	limit   int
	ownerID uuid.UUID
}

func (s *stubChunkRepo) SearchSimilarWithScore(_ context.Context, _ []float32, limit int, ownerId uuid.UUID) ([]*contract.ScoredDocumentChunk, error) {
	s.limit, s.ownerID = limit, ownerId
	return s.scored, s.err
}

func TestChunkVectorIndex_Search(t *testing.T) {
	requester := uuid.New()
	first, second := uuid.New(), uuid.New()
	repo := &stubChunkRepo{scored: []*contract.ScoredDocumentChunk{
		{Chunk: &entity.DocumentChunk{Id: first, OwnerId: requester, DocumentType: "notes", Visibility: "private", Content: "a"}, Similarity: 0.8},
		{Chunk: &entity.DocumentChunk{Id: second, DocumentType: "question_paper", Visibility: "public", Content: "b"}, Similarity: 0.5},
	}}

	index := NewChunkVectorIndex(repo)
	chunks, err := index.Search(context.Background(), []float32{1}, retrieval.AccessFilter{RequesterID: requester}, 20)
	require.NoError(t, err)

	assert.Equal(t, 20, repo.limit)
	assert.Equal(t, requester, repo.ownerID)
	require.Len(t, chunks, 2)
	assert.Equal(t, workflow.RetrievedChunk{
		ChunkID: first, OwnerID: requester, DocumentType: workflow.DocumentNotes,
		Visibility: workflow.VisibilityPrivate, Text: "a", Similarity: 0.8, Score: 0.8, IndexRank: 0,
	}, chunks[0])
	assert.Equal(t, 1, chunks[1].IndexRank)
	assert.Equal(t, workflow.DocumentQuestionPaper, chunks[1].DocumentType)
}

func TestChunkVectorIndex_SearchError(t *testing.T) {
	index := NewChunkVectorIndex(&stubChunkRepo{err: errors.New("timeout")})

	_, err := index.Search(context.Background(), []float32{1}, retrieval.AccessFilter{}, 5)
	assert.EqualError(t, err, "search document chunks: timeout")
}

func TestDocumentChunkRepository_DeleteByDocumentIdSoftDeletes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentChunkRepository(db)
	doc := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "document_chunks" SET "deleted_at"=\$1 WHERE document_id = \$2 AND "document_chunks"\."deleted_at" IS NULL`).
		WithArgs(sqlmock.AnyArg(), doc).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteByDocumentId(context.Background(), doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentChunkRepository_Count(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentChunkRepository(db)
	owner := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "document_chunks" WHERE owner_id = \$1 AND "document_chunks"\."deleted_at" IS NULL`).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
