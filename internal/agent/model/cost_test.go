package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestMessageCost(t *testing.T) {
	msg := &schema.Message{
		Role: schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000},
		},
	}
	assert.InDelta(t, 2.80, MessageCost(msg, "gemini-2.5-flash"), 1e-9)
	assert.Zero(t, MessageCost(msg, "unknown-model"))
	assert.Zero(t, MessageCost(schema.AssistantMessage("no usage", nil), "gemini-2.5-flash"))
	assert.Zero(t, MessageCost(nil, "gemini-2.5-flash"))
}
