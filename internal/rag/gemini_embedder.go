package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

const geminiService = "gemini embeddings"

// GeminiEmbedderConfig configures GeminiEmbedder.
type GeminiEmbedderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
	TaskType  string
}

// GeminiEmbedder embeds text with the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	cfg    GeminiEmbedderConfig
}

// NewGeminiEmbedder creates the genai client. It is meant to be called from
// a LazyEmbedder loader.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiEmbedderConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errx.Configuration("GEMINI_API_KEY is required for gemini embeddings")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > 100 {
		cfg.BatchSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TaskType == "" {
		cfg.TaskType = "RETRIEVAL_DOCUMENT"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, cfg: cfg}, nil
}

// EmbedStrings implements embedding.Embedder.
func (g *GeminiEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := min(start+g.cfg.BatchSize, len(texts))
		vecs, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	embedCfg := &genai.EmbedContentConfig{TaskType: g.cfg.TaskType}
	if g.cfg.Dimension > 0 {
		embedCfg.OutputDimensionality = genai.Ptr(int32(g.cfg.Dimension))
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.Model, contents, embedCfg)
	if err != nil {
		logx.Error().Err(err).Str("model", g.cfg.Model).Int("batch", len(texts)).Msg("embed content failed")
		return nil, classifyGenAI(err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, errx.Malformed(geminiService, fmt.Errorf("expected %d embeddings, got %d", len(texts), got))
	}

	vecs := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, errx.Malformed(geminiService, fmt.Errorf("embedding %d is empty", i))
		}
		v := make([]float64, len(e.Values))
		for j, x := range e.Values {
			v[j] = float64(x)
		}
		vecs[i] = v
	}
	return vecs, nil
}

func classifyGenAI(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return errx.FromStatus(geminiService, apiErr.Code, apiErr.Message)
	}
	return errx.FromTransport(geminiService, err)
}

var _ embedding.Embedder = (*GeminiEmbedder)(nil)
