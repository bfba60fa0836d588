package unitofwork

import (
	"context"
	"errors"

	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTransactionActive = errors.New("transaction already started")
	ErrNoTransaction     = errors.New("no active transaction")
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

// getDB returns the open transaction when there is one, so repositories
// handed out after Begin share it.
func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTransactionActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) DocumentChunkRepository() contract.DocumentChunkRepository {
	return implementation.NewDocumentChunkRepository(u.getDB())
}
