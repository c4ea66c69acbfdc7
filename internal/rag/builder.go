package rag

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// BuildIndex chunks docs, embeds the chunks in batches and replaces the
// index content with them. Nothing is written unless every batch embeds.
// It returns the number of chunks indexed.
func BuildIndex(ctx context.Context, docs []Document, chunker *Chunker, embedder embedding.Embedder, index Index, batchSize int) (int, error) {
	if chunker == nil || embedder == nil || index == nil {
		return 0, errx.Configuration("index build requires a chunker, an embedder and an index")
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	chunks := chunker.ChunkDocuments(docs)
	records := make([]Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return 0, errx.Retrieval(err, "embed chunks failed")
		}
		if len(vecs) != len(batch) {
			return 0, errx.Retrieval(fmt.Errorf("expected %d vectors, got %d", len(batch), len(vecs)), "embed chunks failed")
		}

		for i, c := range batch {
			records = append(records, Record{ID: c.ID(), Vector: vecs[i], Chunk: c})
		}
		logx.Debug().Int("embedded", end).Int("total", len(chunks)).Msg("index build progress")
	}

	if err := index.Replace(ctx, records); err != nil {
		return 0, errx.Retrieval(err, "replace index content failed")
	}

	logx.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("index built")
	return len(chunks), nil
}
