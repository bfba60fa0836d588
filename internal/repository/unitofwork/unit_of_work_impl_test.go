package unitofwork

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

func chunkFor(doc uuid.UUID) *entity.DocumentChunk {
	return &entity.DocumentChunk{
		Id:             uuid.New(),
		DocumentId:     doc,
		OwnerId:        uuid.New(),
		DocumentType:   "notes",
		Visibility:     "private",
		Content:        "Stomata regulate gas exchange.",
		Metadata:       map[string]interface{}{},
		EmbeddingValue: []float32{1, 0, 0},
	}
}

func TestUnitOfWork_ReplaceChunks(t *testing.T) {
	tests := []struct {
		name      string
		insertErr error
		commit    bool
	}{
		{"insert succeeds and commits", nil, true},
		{"insert fails and rolls back the delete", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			doc := uuid.New()

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "document_chunks" SET "deleted_at"=\$1 WHERE document_id = \$2`).
				WithArgs(sqlmock.AnyArg(), doc).
				WillReturnResult(sqlmock.NewResult(0, 2))
			insert := mock.ExpectQuery(`INSERT INTO "document_chunks"`)
			if tt.insertErr != nil {
				insert.WillReturnError(tt.insertErr)
				mock.ExpectRollback()
			} else {
				insert.WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
				mock.ExpectCommit()
			}

			uow := NewRepositoryFactory(db).NewUnitOfWork(context.Background())
			require.NoError(t, uow.Begin(context.Background()))

			repo := uow.DocumentChunkRepository()
			require.NoError(t, repo.DeleteByDocumentId(context.Background(), doc))
			err := repo.CreateBulk(context.Background(), []*entity.DocumentChunk{chunkFor(doc)})
			if tt.commit {
				require.NoError(t, err)
				require.NoError(t, uow.Commit())
			} else {
				require.Error(t, err)
				require.NoError(t, uow.Rollback())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUnitOfWork_TransactionState(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()

	uow := NewUnitOfWork(db)
	assert.ErrorIs(t, uow.Commit(), ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(), ErrNoTransaction)

	require.NoError(t, uow.Begin(context.Background()))
	assert.ErrorIs(t, uow.Begin(context.Background()), ErrTransactionActive)
}
