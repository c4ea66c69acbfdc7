// Package nodestest provides in-process fakes for the planner's external
// collaborators.
package nodestest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-planner/server/internal/agent/model"
	"github.com/wayfarer-planner/server/internal/clients/weather"
	"github.com/wayfarer-planner/server/internal/core/retry"
	"github.com/wayfarer-planner/server/internal/rag"
)

// Prompt kinds recognised by ChatModel.
const (
	KindCountry     = "country"
	KindAirport     = "airport"
	KindWeather     = "weather"
	KindClothing    = "clothing"
	KindHotels      = "hotels"
	KindRestaurants = "restaurants"
)

// FastRetry retries quickly so failure tests stay fast.
var FastRetry = retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

// ChatModel answers planner prompts from a script.
type ChatModel struct {
	mu sync.Mutex

	// Countries are returned in order; the last one repeats.
	Countries []string
	// Codes maps a location to the airport code the model answers with.
	Codes map[string]string
	// Errors maps a prompt kind to the error returned for it.
	Errors map[string]error

	calls   map[string]int
	country int
}

// Kind tells which planner prompt a message list was rendered from.
func Kind(in []*schema.Message) string {
	var user string
	for _, m := range in {
		if m != nil && m.Role == schema.User {
			user = m.Content
		}
	}
	switch {
	case strings.Contains(user, "which ONE country"):
		return KindCountry
	case strings.Contains(user, "Location query:"):
		return KindAirport
	case strings.Contains(user, "Weather data for"):
		return KindWeather
	case strings.Contains(user, "Suggest suitable clothes"):
		return KindClothing
	case strings.Contains(user, "Nightly budget:"):
		return KindHotels
	case strings.Contains(user, "Interests:"):
		return KindRestaurants
	default:
		return ""
	}
}

func (c *ChatModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	kind := Kind(in)
	c.calls[kind]++
	if err := c.Errors[kind]; err != nil {
		return nil, err
	}

	var content string
	switch kind {
	case KindCountry:
		if len(c.Countries) == 0 {
			content = "Portugal"
			break
		}
		content = c.Countries[min(c.country, len(c.Countries)-1)]
		c.country++
	case KindAirport:
		content = model.NotFoundCode
		last := in[len(in)-1].Content
		if i := strings.LastIndex(last, "Location query:\n"); i >= 0 {
			if code, ok := c.Codes[strings.TrimSpace(last[i+len("Location query:\n"):])]; ok {
				content = code
			}
		}
	case KindWeather:
		content = "Sunny, around 25°C."
	case KindClothing:
		content = "Light cotton clothes and sandals."
	case KindHotels:
		content = "Harbour View Hotel."
	case KindRestaurants:
		content = "Seafood at the old market."
	default:
		return nil, errors.New("unexpected prompt")
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100},
		},
	}, nil
}

func (c *ChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := c.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls returns how often a prompt kind was sent.
func (c *ChatModel) Calls(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[kind]
}

// Pricing returns fixed quotes.
type Pricing struct {
	mu sync.Mutex

	// Prices by destination code; Default is used otherwise.
	Prices  map[string]model.Cost
	Default model.Cost
	Err     error

	calls int
}

func (p *Pricing) Lookup(_ context.Context, _, destination, _ string) (model.Cost, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.Err != nil {
		return model.Cost{}, p.Err
	}
	if c, ok := p.Prices[destination]; ok {
		return c, nil
	}
	return p.Default, nil
}

// Calls returns how often Lookup ran.
func (p *Pricing) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Weather returns a fixed report.
type Weather struct {
	Err error
}

func (w *Weather) Current(_ context.Context, location string) (weather.Report, error) {
	if w.Err != nil {
		return weather.Report{}, w.Err
	}
	return weather.Report{Location: location, TempC: "25", FeelsLikeC: "26", Humidity: "60", WindKmph: "10", Description: "Sunny"}, nil
}

// NewRetriever indexes texts in memory with the hashing embedder. With no
// texts the index is empty and every query returns no hits.
func NewRetriever(t testing.TB, texts ...string) *rag.Retriever {
	t.Helper()
	embedder, err := rag.NewHashEmbedder(64)
	require.NoError(t, err)
	chunker, err := rag.NewChunker(500, 50)
	require.NoError(t, err)

	docs := make([]rag.Document, 0, len(texts))
	for i, text := range texts {
		docs = append(docs, rag.Document{Content: text, Source: "doc" + string(rune('a'+i)) + ".txt", FileType: "txt"})
	}
	index := rag.NewMemoryIndex(64)
	_, err = rag.BuildIndex(context.Background(), docs, chunker, embedder, index, 8)
	require.NoError(t, err)
	return rag.NewRetriever(embedder, index)
}

// AirportDocs is a small reference corpus for code resolution.
var AirportDocs = []string{
	"Portugal: Lisbon Humberto Delgado Airport (LIS) is the main international airport.",
	"Lebanon: Beirut Rafic Hariri International Airport (BEY).",
	"Hotels in Portugal: Harbour View Hotel in Lisbon, about 90 USD per night.",
	"Restaurants in Portugal: seafood at the Time Out Market in Lisbon.",
}

var (
	_ einomodel.BaseChatModel = (*ChatModel)(nil)
	_ weather.Provider        = (*Weather)(nil)
)
