package nodes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-planner/server/internal/agent/graph/prompts"
	"github.com/wayfarer-planner/server/internal/agent/llm"
	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	"github.com/wayfarer-planner/server/internal/core/retry"
	"github.com/wayfarer-planner/server/internal/rag"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

const (
	DefaultRetryCap = 2
	DefaultTopK     = 5
)

// ===== Small helpers to keep steps simple/readable =====
// normalizeRetryCap returns a sane default when the provided value is invalid.
func normalizeRetryCap(n int) int {
	if n < 0 {
		return DefaultRetryCap
	}
	return n
}

func normalizeTopK(n int) int {
	if n <= 0 {
		return DefaultTopK
	}
	return n
}

// listOrNone renders a list for a prompt.
func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// nightlyBudget spreads what is left after flights over the trip.
func nightlyBudget(info model.UserInfo, cost *model.Cost) float64 {
	remaining := info.Budget
	if cost != nil && cost.Known {
		remaining -= cost.Amount
	}
	if remaining <= 0 || info.Duration <= 0 {
		return 0
	}
	return math.Floor(remaining / float64(info.Duration))
}

func assistant(format string, args ...any) *schema.Message {
	return schema.AssistantMessage(fmt.Sprintf(format, args...), nil)
}

// generate renders t, calls the chat model with step-level retry and returns
// the reply text plus its usage cost.
func (s *Steps) generate(ctx context.Context, step model.StepName, t prompts.Template, vars map[string]any) (string, float64, error) {
	promptCtx := einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      t.Name,
		Type:      "FString",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := prompts.Render(promptCtx, t, vars)
	if err != nil {
		return "", 0, err
	}

	modelCtx := einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      string(step),
		Type:      s.deps.ChatModel.Provider,
		Component: components.ComponentOfChatModel,
	})
	out, err := retry.DoValue(modelCtx, s.deps.Retry, string(step), func(ctx context.Context) (*schema.Message, error) {
		if s.deps.ChatModel.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.deps.ChatModel.Timeout)
			defer cancel()
		}
		msg, err := s.deps.ChatModel.Model.Generate(ctx, msgs)
		if err != nil {
			return nil, llm.Classify(s.deps.ChatModel.Name, err)
		}
		if msg == nil {
			return nil, errx.Malformed(s.deps.ChatModel.Name, errors.New("empty reply"))
		}
		return msg, nil
	})
	if err != nil {
		return "", 0, err
	}

	cost := model.MessageCost(out, s.deps.ChatModel.Name)
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		logx.Debug().
			Str("step", string(step)).
			Str("model", s.deps.ChatModel.Name).
			Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
			Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
			Float64("total_cost_usd", cost).
			Msg("LLM usage")
	}
	return strings.TrimSpace(out.Content), cost, nil
}

// retrieve looks up context for query, retrying transient retrieval failures.
func (s *Steps) retrieve(ctx context.Context, step model.StepName, query string) (rag.RetrievalResult, error) {
	return retry.DoValue(ctx, s.deps.Retry, string(step), func(ctx context.Context) (rag.RetrievalResult, error) {
		return s.deps.Retriever.Retrieve(ctx, query, s.topK)
	})
}
