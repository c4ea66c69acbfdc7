package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/wayfarer-planner/server/internal/agent/graph/nodes"
	"github.com/wayfarer-planner/server/internal/agent/model"
	"github.com/wayfarer-planner/server/internal/clients/pricing"
	"github.com/wayfarer-planner/server/internal/clients/weather"
	"github.com/wayfarer-planner/server/internal/core"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	"github.com/wayfarer-planner/server/internal/rag"
	logx "github.com/wayfarer-planner/server/pkg/logger"
	pkgpostgres "github.com/wayfarer-planner/server/pkg/postgres"
	pkgredis "github.com/wayfarer-planner/server/pkg/redis"
)

const (
	EmbeddingGemini = "gemini"
	EmbeddingHash   = "hash"

	VectorStoreMemory   = "memory"
	VectorStorePGVector = "pgvector"
)

// Config defines all configurable parameters of the planner,
// sourced from environment variables (loaded from .env for local runs).
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider and agent configs
	LLM      model.LLMConfig
	Planner  model.PlannerModelConfig
	Workflow model.WorkflowConfig
	History  model.HistoryConfig

	// Retrieval and external services
	RAG     rag.Config
	Pricing pricing.Config
	Weather weather.Config
}

// LoadConfig reads envFile when present, then the process environment.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, errx.Configuration("load %s: %v", envFile, err)
			}
			logx.Debug().Str("file", envFile).Msg("No env file found, using process environment")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errx.Configuration("process environment config: %v", err)
	}
	return &cfg, nil
}

// Env returns the parsed deployment environment.
func (c *Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// HistoryTTL parses PLAN_HISTORY_TTL.
func (c *Config) HistoryTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.History.TTL)
	if err != nil {
		return 0, errx.Configuration("invalid PLAN_HISTORY_TTL %q: %v", c.History.TTL, err)
	}
	return ttl, nil
}

// ValidateIndex checks what building the document index needs.
func (c *Config) ValidateIndex() error {
	if c.RAG.ChunkSize <= 0 || c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return errx.Configuration("invalid chunking: size %d, overlap %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.EmbeddingDimension <= 0 {
		return errx.Configuration("EMBEDDING_DIMENSION must be positive")
	}

	switch strings.ToLower(c.RAG.EmbeddingProvider) {
	case EmbeddingGemini:
		if c.LLM.GeminiAPIKey == "" {
			return errx.Configuration("GEMINI_API_KEY is required for gemini embeddings")
		}
	case EmbeddingHash:
	default:
		return errx.Configuration("unsupported EMBEDDING_PROVIDER %q", c.RAG.EmbeddingProvider)
	}

	switch strings.ToLower(c.RAG.VectorStore) {
	case VectorStoreMemory:
	case VectorStorePGVector:
		if !c.Postgres.Enabled() {
			return errx.Configuration("PGVECTOR_DSN is required for VECTOR_STORE=pgvector")
		}
	default:
		return errx.Configuration("unsupported VECTOR_STORE %q", c.RAG.VectorStore)
	}
	return nil
}

// Validate checks everything a planning run needs.
func (c *Config) Validate() error {
	if err := c.ValidateIndex(); err != nil {
		return err
	}

	switch strings.ToLower(c.LLM.Provider) {
	case nodes.ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return errx.Configuration("GEMINI_API_KEY is required for LLM_PROVIDER=gemini")
		}
	case nodes.ProviderDeepSeek:
		if c.LLM.DeepSeekAPIKey == "" {
			return errx.Configuration("DEEPSEEK_API_KEY is required for LLM_PROVIDER=deepseek")
		}
	default:
		return errx.Configuration("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.Pricing.APIKey == "" {
		return errx.Configuration("RAPIDAPI_KEY is required for flight pricing")
	}
	if c.Workflow.RetryCap < 0 {
		return errx.Configuration("WORKFLOW_RETRY_CAP must not be negative")
	}
	if c.Workflow.MaxSteps <= 0 {
		return errx.Configuration("WORKFLOW_MAX_STEPS must be positive")
	}
	if c.Workflow.StepMaxRetries < 0 {
		return errx.Configuration("STEP_MAX_RETRIES must not be negative")
	}
	if c.Redis.Enabled() {
		if _, err := c.HistoryTTL(); err != nil {
			return err
		}
	}
	return nil
}
