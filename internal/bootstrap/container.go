package bootstrap

import (
	"context"

	"study-assistant-be/internal/config"
	"study-assistant-be/internal/controller"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/pkg/metrics"
	"study-assistant-be/internal/repository/implementation"
	"study-assistant-be/internal/repository/memory"
	"study-assistant-be/internal/service"
	"study-assistant-be/internal/websocket"
	pktNats "study-assistant-be/pkg/nats"
	"study-assistant-be/pkg/rag/orchestrator"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	WorkflowController controller.IWorkflowController
	WebSocketHandler   *websocket.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	MetricsRegistry *prometheus.Registry
	Logger          logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	// 1. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 2. Infrastructure
	rdb := connectRedis(cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "NATS unavailable, workflow events stay in-process", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}

	// 3. Metrics
	c.MetricsRegistry = prometheus.NewRegistry()
	c.MetricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.New(c.MetricsRegistry)

	// 4. Pipeline
	providers, err := NewProviders(cfg, rdb, sysLogger)
	if err != nil {
		return nil, err
	}
	workflowMetrics.TrackBreaker("llm", providers.LLMBreaker)

	chunkRepo := implementation.NewDocumentChunkRepository(db)
	sessionRepo := memory.NewSessionRepository(cfg.App.SessionTTL)
	publisherService := service.NewPublisherService(cfg.App.EventsTopic, pubSub)

	orch := NewOrchestrator(cfg, providers, implementation.NewChunkVectorIndex(chunkRepo), sysLogger,
		orchestrator.WithObserver(workflowMetrics),
		orchestrator.WithSessionStore(sessionRepo),
		orchestrator.WithPublisher(publisherService),
	)

	// 5. Delivery
	wsLogger := logger.NewFileOnlyLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	sinks := []service.EventSink{c.WebSocketHub}
	if natsPub != nil {
		sinks = append(sinks, natsPub)
	}
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.EventsTopic, sysLogger, sinks...)

	workflowService := service.NewWorkflowService(orch, sessionRepo)
	c.WorkflowController = controller.NewWorkflowController(workflowService)
	c.WebSocketHandler = websocket.NewHandler(c.WebSocketHub, workflowService, wsLogger)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// connectRedis returns nil when Redis is unreachable; the embedding cache and
// cross-instance websocket delivery are then disabled.
func connectRedis(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unreachable, running without cache", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
