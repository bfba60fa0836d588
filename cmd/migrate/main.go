package main

import (
	"log"
	"os"

	"study-assistant-be/internal/model"
	"study-assistant-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer database.Close(db)

	// 2. Extensions (AutoMigrate does not create them)
	log.Println("Step 1: Setting up extensions...")
	if err := database.EnsureExtensions(db); err != nil {
		log.Fatal("Error: ", err)
	}

	// 3. Tables
	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.DocumentChunk{}); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	// 4. Indexes
	log.Println("Step 3: Creating indexes...")
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_owner ON document_chunks (owner_id) WHERE deleted_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks (document_id);`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding ON document_chunks USING hnsw (embedding_value vector_cosine_ops);`,
	}
	for _, sql := range indexes {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create index: %v. Continuing...", err)
		}
	}

	log.Println("Migration completed.")
}
