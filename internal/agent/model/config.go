package model

import "time"

// ================ Config ================
type LLMConfig struct {
	Provider        string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL   string        `envconfig:"GEMINI_BASE_URL"`
	DeepSeekAPIKey  string        `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL string        `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
	Timeout         time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

type PlannerModelConfig struct {
	Model       string  `envconfig:"PLANNER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"PLANNER_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"PLANNER_TEMPERATURE" default:"0.3"`
}

type WorkflowConfig struct {
	RetryCap       int           `envconfig:"WORKFLOW_RETRY_CAP" default:"2"`
	MaxSteps       int           `envconfig:"WORKFLOW_MAX_STEPS" default:"25"`
	StepMaxRetries int           `envconfig:"STEP_MAX_RETRIES" default:"2"`
	StepRetryDelay time.Duration `envconfig:"STEP_RETRY_DELAY" default:"500ms"`
	TopK           int           `envconfig:"RAG_TOP_K" default:"5"`
}

type HistoryConfig struct {
	TTL         string `envconfig:"PLAN_HISTORY_TTL" default:"168h"`
	ReplayTurns int    `envconfig:"PLAN_HISTORY_REPLAY_TURNS" default:"0"`
}
