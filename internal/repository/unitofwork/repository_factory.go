package unitofwork

import (
	"context"

	"gorm.io/gorm"
)

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{db: db}
}

// NewUnitOfWork is short lived, one per ingest or request.
func (f *RepositoryFactoryImpl) NewUnitOfWork(_ context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}
