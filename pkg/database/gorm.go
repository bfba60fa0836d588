package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxIdleConns: 10, MaxOpenConns: 50, ConnMaxLifetime: time.Hour}
}

func getLogger(verbose bool) logger.Interface {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			// Query vectors are large; keep them out of the SQL log.
			ParameterizedQueries: true,
			Colorful:             true,
		},
	)
}

func configureConnectionPool(db *gorm.DB, pool PoolConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	return nil
}

// NewGormDBFromDSN opens a pooled Postgres connection and checks it is reachable.
// SQL statements are logged only when verbose is set.
func NewGormDBFromDSN(dsn string, verbose bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database connection string is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: getLogger(verbose),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, DefaultPoolConfig()); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// EnsureExtensions installs the Postgres extensions the chunk store relies on.
func EnsureExtensions(db *gorm.DB) error {
	for _, ext := range []string{"pgcrypto", "vector"} {
		if err := db.Exec(fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", ext)).Error; err != nil {
			return fmt.Errorf("create extension %s: %w", ext, err)
		}
	}
	return nil
}

func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
