package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/wayfarer-planner/server/internal/agent/llm"
	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"

	defaultDeepSeekModel = "deepseek-chat"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	LLM     model.LLMConfig
	Planner model.PlannerModelConfig
}

// ChatModel is the planner's chat model plus the name used for usage pricing.
type ChatModel struct {
	Model    einomodel.BaseChatModel
	Name     string
	Provider string
	Timeout  time.Duration
}

// NewChatModel creates the planner chat model for the configured provider.
func NewChatModel(ctx context.Context, config ChatModelConfig) (*ChatModel, error) {
	provider := strings.ToLower(strings.TrimSpace(config.LLM.Provider))
	switch provider {
	case "", ProviderGemini:
		return newGeminiChatModel(ctx, config)
	case ProviderDeepSeek:
		return newDeepSeekChatModel(config)
	default:
		return nil, errx.Configuration("unsupported LLM provider %q", config.LLM.Provider)
	}
}

func newGeminiChatModel(ctx context.Context, config ChatModelConfig) (*ChatModel, error) {
	if config.LLM.GeminiAPIKey == "" {
		return nil, errx.Configuration("GEMINI_API_KEY is required for provider %q", ProviderGemini)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.LLM.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.LLM.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.LLM.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	planner := config.Planner
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       planner.Model,
		Temperature: &planner.Temperature,
		MaxTokens:   &planner.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating planner model")
		return nil, fmt.Errorf("error creating planner model: %w", err)
	}

	logx.Debug().Str("provider", ProviderGemini).Str("model", planner.Model).Msg("Planner chat model ready")
	return &ChatModel{
		Model:    chatModel,
		Name:     planner.Model,
		Provider: ProviderGemini,
		Timeout:  config.LLM.Timeout,
	}, nil
}

func newDeepSeekChatModel(config ChatModelConfig) (*ChatModel, error) {
	if config.LLM.DeepSeekAPIKey == "" {
		return nil, errx.Configuration("DEEPSEEK_API_KEY is required for provider %q", ProviderDeepSeek)
	}

	name := config.Planner.Model
	if name == "" || strings.HasPrefix(name, "gemini") {
		name = defaultDeepSeekModel
	}

	chatModel, err := llm.NewOpenAIChatModel(llm.OpenAIConfig{
		APIKey:      config.LLM.DeepSeekAPIKey,
		BaseURL:     config.LLM.DeepSeekBaseURL,
		Model:       name,
		MaxTokens:   config.Planner.MaxTokens,
		Temperature: config.Planner.Temperature,
		Timeout:     config.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Str("provider", ProviderDeepSeek).Str("model", name).Msg("Planner chat model ready")
	return &ChatModel{
		Model:    chatModel,
		Name:     name,
		Provider: ProviderDeepSeek,
		Timeout:  config.LLM.Timeout,
	}, nil
}
