package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// Hit is one ranked retrieval result.
type Hit struct {
	Text       string
	Source     string
	Similarity float64 // in [0, 1]
	Distance   float64
}

// RetrievalResult is ordered by rank; index 0 is the most similar chunk.
type RetrievalResult []Hit

// Empty reports whether nothing was retrieved.
func (r RetrievalResult) Empty() bool { return len(r) == 0 }

// Context joins the hit texts for use in a prompt.
func (r RetrievalResult) Context() string {
	parts := make([]string, 0, len(r))
	for _, h := range r {
		parts = append(parts, h.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Retriever embeds a query and looks up its nearest chunks.
type Retriever struct {
	embedder embedding.Embedder
	index    Index
}

// NewRetriever wires an embedder to an index.
func NewRetriever(embedder embedding.Embedder, index Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Similarity converts cosine distance in [0, 2] to a score in [0, 1].
func Similarity(distance float64) float64 {
	s := 1 - distance/2
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// Retrieve returns at most topK hits for query.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (RetrievalResult, error) {
	vecs, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, errx.Retrieval(err, "embed query failed")
	}
	if len(vecs) != 1 {
		return nil, errx.Retrieval(fmt.Errorf("expected 1 vector, got %d", len(vecs)), "embed query failed")
	}

	matches, err := r.index.Query(ctx, vecs[0], topK)
	if err != nil {
		return nil, errx.Retrieval(err, "vector index query failed")
	}

	result := make(RetrievalResult, len(matches))
	for i, m := range matches {
		result[i] = Hit{
			Text:       m.Chunk.Text,
			Source:     m.Chunk.Source,
			Similarity: Similarity(m.Distance),
			Distance:   m.Distance,
		}
	}
	logx.Debug().Str("query", query).Int("hits", len(result)).Msg("retrieved context")
	return result, nil
}
