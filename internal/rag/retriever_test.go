package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) EmbedStrings(context.Context, []string, ...embedding.Option) ([][]float64, error) {
	return nil, f.err
}

func buildTestIndex(t *testing.T, docs []Document) (*Retriever, *MemoryIndex) {
	t.Helper()
	emb, err := NewHashEmbedder(128)
	require.NoError(t, err)
	chunker, err := NewChunker(500, 50)
	require.NoError(t, err)
	idx := NewMemoryIndex(128)
	n, err := BuildIndex(context.Background(), docs, chunker, emb, idx, 2)
	require.NoError(t, err)
	require.Equal(t, len(docs), n)
	return NewRetriever(emb, idx), idx
}

func TestRetriever_RanksBySimilarity(t *testing.T) {
	r, _ := buildTestIndex(t, []Document{
		{Content: "Portugal main airport Lisbon Humberto Delgado IATA LIS", Source: "airports.txt"},
		{Content: "Japan Tokyo Haneda airport IATA HND", Source: "japan.txt"},
		{Content: "Best pasteis de nata bakeries", Source: "food.txt"},
	})

	got, err := r.Retrieve(context.Background(), "Portugal airport IATA", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "airports.txt", got[0].Source)
	assert.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
	for _, h := range got {
		assert.GreaterOrEqual(t, h.Similarity, 0.0)
		assert.LessOrEqual(t, h.Similarity, 1.0)
	}
	assert.Contains(t, got.Context(), "LIS")
}

func TestRetriever_EmptyIndex(t *testing.T) {
	emb, _ := NewHashEmbedder(16)
	r := NewRetriever(emb, NewMemoryIndex(16))

	got, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestRetriever_EmbedFailureIsRetrievalError(t *testing.T) {
	r := NewRetriever(failingEmbedder{err: errx.External(errors.New("503"), "gemini embeddings", true)}, NewMemoryIndex(4))

	_, err := r.Retrieve(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, errx.KindRetrieval, errx.KindOf(err))
	assert.True(t, errx.IsRetryable(err))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.Equal(t, 0.5, Similarity(1))
	assert.Equal(t, 0.0, Similarity(2))
	assert.Equal(t, 0.0, Similarity(2.5))
	assert.Equal(t, 1.0, Similarity(-0.1))
}
