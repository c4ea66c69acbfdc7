package app

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	"github.com/wayfarer-planner/server/internal/rag"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// Store bundles the embedder and vector index a retriever reads from.
type Store struct {
	Embedder embedding.Embedder
	Index    rag.Index
	close    func() error
}

// OpenStore builds the configured embedder and connects the vector index.
// The gemini embedder is created on first use.
func OpenStore(ctx context.Context, cfg *Config) (*Store, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{Embedder: embedder, close: func() error { return nil }}
	switch strings.ToLower(cfg.RAG.VectorStore) {
	case VectorStorePGVector:
		db, err := cfg.Postgres.New()
		if err != nil {
			return nil, errx.External(err, "postgres", false)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errx.External(err, "postgres", false)
		}
		idx, err := rag.NewPGVectorIndex(ctx, db, cfg.RAG.PGVectorTable, cfg.RAG.EmbeddingDimension)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		s.Index = idx
		s.close = sqlDB.Close
	default:
		s.Index = rag.NewMemoryIndex(cfg.RAG.EmbeddingDimension)
	}
	return s, nil
}

func newEmbedder(cfg *Config) (embedding.Embedder, error) {
	switch strings.ToLower(cfg.RAG.EmbeddingProvider) {
	case EmbeddingHash:
		return rag.NewHashEmbedder(cfg.RAG.EmbeddingDimension)
	case EmbeddingGemini:
		geminiCfg := rag.GeminiEmbedderConfig{
			APIKey:    cfg.LLM.GeminiAPIKey,
			BaseURL:   cfg.LLM.GeminiBaseURL,
			Model:     cfg.RAG.EmbeddingModel,
			Dimension: cfg.RAG.EmbeddingDimension,
			BatchSize: cfg.RAG.EmbeddingBatchSize,
			Timeout:   cfg.RAG.EmbeddingTimeout,
		}
		return rag.NewLazyEmbedder(func(ctx context.Context) (embedding.Embedder, error) {
			return rag.NewGeminiEmbedder(ctx, geminiCfg)
		}), nil
	default:
		return nil, errx.Configuration("unsupported EMBEDDING_PROVIDER %q", cfg.RAG.EmbeddingProvider)
	}
}

// Retriever returns a retriever over the store.
func (s *Store) Retriever() *rag.Retriever {
	return rag.NewRetriever(s.Embedder, s.Index)
}

// Build loads every document under RAG_DOCS_DIR and indexes its chunks.
func (s *Store) Build(ctx context.Context, cfg *Config) (int, error) {
	chunker, err := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	docs, err := rag.LoadFolder(cfg.RAG.DocsDir)
	if err != nil {
		return 0, errx.Configuration("%v", err)
	}
	if len(docs) == 0 {
		logx.Warn().Str("dir", cfg.RAG.DocsDir).Msg("No documents found, retrieval will return no context")
	}
	return rag.BuildIndex(ctx, docs, chunker, s.Embedder, s.Index, cfg.RAG.EmbeddingBatchSize)
}

// EnsureBuilt builds the index unless a persistent store already holds chunks.
func (s *Store) EnsureBuilt(ctx context.Context, cfg *Config) (int, error) {
	if strings.EqualFold(cfg.RAG.VectorStore, VectorStorePGVector) {
		n, err := s.Index.Count(ctx)
		if err != nil {
			return 0, errx.Retrieval(err, "count indexed chunks failed")
		}
		if n > 0 {
			logx.Info().Int("chunks", n).Msg("Reusing persisted vector index")
			return n, nil
		}
	}
	return s.Build(ctx, cfg)
}

func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}
