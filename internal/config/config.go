package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Pipeline PipelineConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventsTopic        string
	SessionTTL         time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
	Environment string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	JwtSecret string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "gemini"
	OllamaBaseURL     string
	EmbeddingModel    string
	GeminiAPIKey      string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	LLMBaseURL        string // empty means OllamaBaseURL for ollama
	LLMAPIKey         string
	EmbeddingCacheTTL time.Duration
}

type PipelineConfig struct {
	// Retrieval
	SimilarityFloor    float64
	ContextCharBudget  int
	RetrievalOverFetch int

	// Evaluation
	PointCoverageFloor float64

	// Question generation
	MaxRegenerationRounds int
	QuestionMarks         MarkConvention
	DefaultQuestionCount  int

	// Resilience
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	BreakerFailures      int
	BreakerCooldown      time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	marks, err := ParseMarkConvention(getEnv("QUESTION_MARKS", ""))
	if err != nil {
		log.Printf("Note: invalid QUESTION_MARKS (%v), falling back to defaults", err)
		marks = DefaultMarkConvention()
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			EventsTopic:        getEnv("WORKFLOW_EVENTS_TOPIC", "workflow-events"),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", time.Hour),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
			EmbeddingCacheTTL: getEnvAsDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),
		},
		Pipeline: PipelineConfig{
			SimilarityFloor:       getEnvAsFloat("RETRIEVAL_SIMILARITY_FLOOR", 0.3),
			ContextCharBudget:     getEnvAsInt("RETRIEVAL_CONTEXT_CHARS", 6000),
			RetrievalOverFetch:    getEnvAsInt("RETRIEVAL_OVER_FETCH", 2),
			PointCoverageFloor:    getEnvAsFloat("EVALUATION_POINT_FLOOR", 0.6),
			MaxRegenerationRounds: getEnvAsInt("QUESTION_MAX_ROUNDS", 3),
			QuestionMarks:         marks,
			DefaultQuestionCount:  getEnvAsInt("QUESTION_DEFAULT_COUNT", 5),
			RetryMaxAttempts:      getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialInterval:  getEnvAsDuration("RETRY_INITIAL_INTERVAL", 200*time.Millisecond),
			RetryMaxInterval:      getEnvAsDuration("RETRY_MAX_INTERVAL", 2*time.Second),
			BreakerFailures:       getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			BreakerCooldown:       getEnvAsDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
			Environment: getEnv("GO_ENV", "development"),
		},
	}
}

// MarkConvention maps question type -> difficulty -> marks awarded.
type MarkConvention map[string]map[string]int

func DefaultMarkConvention() MarkConvention {
	return MarkConvention{
		"mcq":       {"easy": 1, "medium": 1, "hard": 2},
		"short":     {"easy": 2, "medium": 3, "hard": 4},
		"long":      {"easy": 5, "medium": 8, "hard": 10},
		"numerical": {"easy": 2, "medium": 4, "hard": 6},
	}
}

// Marks returns the marks for a question type and difficulty, or 1 when the pair is unknown.
func (m MarkConvention) Marks(questionType, difficulty string) int {
	if byDifficulty, ok := m[questionType]; ok {
		if marks, ok := byDifficulty[difficulty]; ok {
			return marks
		}
	}
	return 1
}

// ParseMarkConvention reads the QUESTION_MARKS format:
//
//	mcq:easy=1,medium=1,hard=2;short:easy=2,medium=3,hard=4
//
// Types that are not mentioned keep their default marks. An empty string yields the defaults.
func ParseMarkConvention(raw string) (MarkConvention, error) {
	conv := DefaultMarkConvention()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return conv, nil
	}

	for _, section := range strings.Split(raw, ";") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		qType, pairs, ok := strings.Cut(section, ":")
		if !ok {
			return nil, fmt.Errorf("section %q: missing ':'", section)
		}
		qType = strings.ToLower(strings.TrimSpace(qType))
		if _, exists := conv[qType]; !exists {
			conv[qType] = map[string]int{}
		}
		for _, pair := range strings.Split(pairs, ",") {
			difficulty, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return nil, fmt.Errorf("section %q: bad pair %q", qType, pair)
			}
			marks, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || marks <= 0 {
				return nil, fmt.Errorf("section %q: marks for %q must be a positive integer", qType, difficulty)
			}
			conv[qType][strings.ToLower(strings.TrimSpace(difficulty))] = marks
		}
	}
	return conv, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
