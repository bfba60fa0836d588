package specification

import "gorm.io/gorm"

// Specification defines the interface for query specifications
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Apply chains specs onto db in order.
func Apply(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}
