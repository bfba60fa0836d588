package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-assistant-be/internal/bootstrap"
	"study-assistant-be/internal/config"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/server"
	"study-assistant-be/internal/tracer"
	"study-assistant-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer sysLogger.Sync()

	// 2. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Tracing, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	defer database.Close(gormDB)

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	if err != nil {
		log.Panicf("Unable to bootstrap container: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start Background Services
	go container.WebSocketHub.Run(ctx)
	go func() {
		sysLogger.Info("MAIN", "Starting workflow event consumer", nil)
		if err := container.ConsumerService.Consume(ctx); err != nil {
			sysLogger.Error("MAIN", "Workflow event consumer stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 6. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			sysLogger.Error("MAIN", "Server stopped", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	sysLogger.Info("MAIN", "Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sysLogger.Warn("MAIN", "Server shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}
}
