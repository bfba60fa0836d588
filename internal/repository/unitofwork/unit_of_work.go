package unitofwork

import (
	"context"

	"study-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentChunkRepository() contract.DocumentChunkRepository
}
