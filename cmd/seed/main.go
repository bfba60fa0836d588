// Command seed indexes study documents from a directory. Files are read from
// <dir>/<document_type>/*.txt|*.md, for example seed-data/notes/photosynthesis.md.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"study-assistant-be/internal/bootstrap"
	"study-assistant-be/internal/config"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/unitofwork"
	"study-assistant-be/internal/service"
	"study-assistant-be/pkg/database"
	"study-assistant-be/pkg/workflow"

	"github.com/google/uuid"
)

// seedNamespace keeps document ids stable across runs so re-seeding replaces chunks.
var seedNamespace = uuid.MustParse("6f1c2b0e-8a4d-4c55-9a53-2b7f0c1d9e11")

func main() {
	dir := flag.String("dir", "seed-data", "directory holding notes/, marking_scheme/ and question_paper/")
	owner := flag.String("owner", "", "owner user id")
	public := flag.Bool("public", false, "index documents as public")
	flag.Parse()

	cfg := config.Load()
	sysLogger := logger.NewZapLogger("logs/seed.log", false)
	defer sysLogger.Sync()

	ownerID, err := uuid.Parse(*owner)
	if err != nil || ownerID == uuid.Nil {
		log.Fatal("Error: -owner must be a valid UUID")
	}
	visibility := workflow.VisibilityPrivate
	if *public {
		visibility = workflow.VisibilityPublic
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer database.Close(db)

	providers, err := bootstrap.NewProviders(cfg, nil, sysLogger)
	if err != nil {
		log.Fatal("Error: ", err)
	}
	ingest := service.NewIngestionService(unitofwork.NewRepositoryFactory(db), providers.Embedder, sysLogger)

	ctx := context.Background()
	total := 0
	for _, docType := range []workflow.DocumentType{workflow.DocumentNotes, workflow.DocumentMarkingScheme, workflow.DocumentQuestionPaper} {
		files, _ := filepath.Glob(filepath.Join(*dir, string(docType), "*"))
		for _, path := range files {
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".txt" && ext != ".md" {
				continue
			}
			content, err := os.ReadFile(path)
			if err != nil {
				log.Printf("Warn: skipping %s: %v", path, err)
				continue
			}
			title := strings.TrimSuffix(filepath.Base(path), ext)
			n, err := ingest.Ingest(ctx, service.IngestDocument{
				DocumentId:   uuid.NewSHA1(seedNamespace, []byte(ownerID.String()+"/"+path)),
				OwnerId:      ownerID,
				DocumentType: docType,
				Visibility:   visibility,
				Title:        title,
				Content:      string(content),
				Metadata:     map[string]interface{}{"source": path},
			})
			if err != nil {
				log.Printf("Error indexing %s: %v", path, err)
				continue
			}
			log.Printf("Indexed %s as %s (%d chunks)", path, docType, n)
			total += n
		}
	}
	log.Printf("Seeding completed: %d chunks", total)
}
