// Package llm adapts chat providers that have no eino component to
// eino's model.BaseChatModel.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

// OpenAIConfig configures an OpenAI-compatible endpoint such as DeepSeek.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// OpenAIChatModel calls the chat completions API through openai-go.
type OpenAIChatModel struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIChatModel builds the client. SDK-level retries are disabled;
// the planner retries at step level.
func NewOpenAIChatModel(cfg OpenAIConfig) (*OpenAIChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errx.Configuration("api key is required for model %q", cfg.Model)
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIChatModel{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (m *OpenAIChatModel) GetType() string { return "OpenAICompatible" }

func (m *OpenAIChatModel) IsCallbacksEnabled() bool { return true }

// Generate implements model.BaseChatModel.
func (m *OpenAIChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (out *schema.Message, err error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.cfg.Model,
		MaxTokens:   &m.cfg.MaxTokens,
		Temperature: &m.cfg.Temperature,
	}, opts...)

	conf := &model.Config{Model: *options.Model}
	if options.MaxTokens != nil {
		conf.MaxTokens = *options.MaxTokens
	}
	if options.Temperature != nil {
		conf.Temperature = *options.Temperature
	}

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: in, Config: conf})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	params := openai.ChatCompletionNewParams{
		Model:    conf.Model,
		Messages: toOpenAIMessages(in),
	}
	if conf.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(conf.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(conf.Temperature))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, Classify(conf.Model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errx.Malformed(conf.Model, fmt.Errorf("completion has no choices"))
	}

	choice := resp.Choices[0]
	out = schema.AssistantMessage(choice.Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: choice.FinishReason,
		Usage: &schema.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: out, Config: conf})
	return out, nil
}

// Stream implements model.BaseChatModel by emitting the full reply as one chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func toOpenAIMessages(in []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			msgs = append(msgs, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			msgs = append(msgs, openai.AssistantMessage(msg.Content))
		default:
			msgs = append(msgs, openai.UserMessage(msg.Content))
		}
	}
	return msgs
}

var _ model.BaseChatModel = (*OpenAIChatModel)(nil)
