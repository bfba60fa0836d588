package bootstrap

import (
	"fmt"

	"study-assistant-be/internal/config"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/llm/factory"
	"study-assistant-be/pkg/rag/evaluation"
	"study-assistant-be/pkg/rag/executor"
	"study-assistant-be/pkg/rag/intent"
	"study-assistant-be/pkg/rag/orchestrator"
	"study-assistant-be/pkg/rag/retrieval"
	"study-assistant-be/pkg/resilience"
	"study-assistant-be/pkg/workflow"

	"github.com/redis/go-redis/v9"
)

// lowConfidence marks rule or fallback classifications that proceed as degraded.
const lowConfidence = 0.5

// Providers are the generation and embedding backends shared by every request.
type Providers struct {
	LLM        llm.LLMProvider
	LLMBreaker *resilience.Breaker
	Embedder   embedding.EmbeddingProvider
}

func retryConfig(cfg *config.Config) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:     cfg.Pipeline.RetryMaxAttempts,
		InitialInterval: cfg.Pipeline.RetryInitialInterval,
		MaxInterval:     cfg.Pipeline.RetryMaxInterval,
	}
}

// NewProviders wraps the configured backends with retry, the LLM circuit breaker and,
// when rdb is not nil, the Redis embedding cache.
func NewProviders(cfg *config.Config, rdb *redis.Client, log logger.ILogger) (*Providers, error) {
	baseURL := cfg.Ai.LLMBaseURL
	if baseURL == "" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	base, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Ai.LLMAPIKey)
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	log.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: cfg.Pipeline.BreakerFailures,
		Cooldown:         cfg.Pipeline.BreakerCooldown,
	}, resilience.SystemClock())
	breaker.OnTransition(func(from, to resilience.State) {
		log.Warn("BOOTSTRAP", "LLM circuit breaker changed state", map[string]interface{}{"from": from.String(), "to": to.String()})
	})

	var emb embedding.EmbeddingProvider = embedding.NewProvider(cfg.Ai.EmbeddingProvider, cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.GeminiAPIKey)
	if rdb != nil {
		emb = embedding.NewCachedProvider(emb, rdb, cfg.Ai.EmbeddingProvider+":"+cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingCacheTTL, log)
	}
	log.Info("BOOTSTRAP", "Using embedding provider", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider, "cached": rdb != nil})

	retry := retryConfig(cfg)
	return &Providers{
		LLM:        llm.NewResilientProvider(base, breaker, retry),
		LLMBreaker: breaker,
		Embedder:   embedding.NewResilientProvider(emb, retry),
	}, nil
}

// NewOrchestrator assembles classifier, retriever and the task executors.
func NewOrchestrator(cfg *config.Config, p *Providers, index retrieval.VectorIndex, log logger.ILogger, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	retrieverCfg := retrieval.DefaultConfig()
	retrieverCfg.SimilarityFloor = cfg.Pipeline.SimilarityFloor
	retrieverCfg.ContextCharBudget = cfg.Pipeline.ContextCharBudget
	retrieverCfg.OverFetch = cfg.Pipeline.RetrievalOverFetch
	retrieverCfg.Retry = retryConfig(cfg)

	evalCfg := evaluation.DefaultConfig()
	evalCfg.PointFloor = cfg.Pipeline.PointCoverageFloor

	questionCfg := executor.DefaultQuestionConfig()
	questionCfg.MaxRounds = cfg.Pipeline.MaxRegenerationRounds
	questionCfg.DefaultCount = cfg.Pipeline.DefaultQuestionCount

	router := orchestrator.NewRouter(map[workflow.Intent]executor.Executor{
		workflow.IntentAnswerGeneration:    executor.NewAnswerGenerator(p.LLM, log),
		workflow.IntentAnswerEvaluation:    executor.NewAnswerEvaluator(evaluation.NewEvaluator(p.Embedder, p.LLM, evalCfg, log)),
		workflow.IntentDoubtClarification:  executor.NewDoubtResolver(p.LLM, executor.DoubtConfig{RelevanceFloor: cfg.Pipeline.SimilarityFloor}, log),
		workflow.IntentQuestionGeneration:  executor.NewQuestionGenerator(p.LLM, cfg.Pipeline.QuestionMarks, questionCfg, log),
		workflow.IntentExamPaperGeneration: executor.NewExamPaperGenerator(p.LLM, cfg.Pipeline.QuestionMarks, questionCfg, log),
	}, lowConfidence)

	return orchestrator.New(
		intent.NewClassifier(intent.DefaultRules(), p.LLM, intent.DefaultConfig(), log),
		router,
		retrieval.NewRetriever(p.Embedder, index, retrieverCfg, log),
		log,
		opts...,
	)
}
