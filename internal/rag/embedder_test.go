package rag

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyEmbedder_LoadsOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	lazy := NewLazyEmbedder(func(ctx context.Context) (embedding.Embedder, error) {
		calls.Add(1)
		return NewHashEmbedder(8)
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecs, err := lazy.EmbedStrings(context.Background(), []string{"hello"})
			assert.NoError(t, err)
			assert.Len(t, vecs, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, lazy.Loads())
}

func TestLazyEmbedder_FailureNotCached(t *testing.T) {
	attempts := 0
	lazy := NewLazyEmbedder(func(ctx context.Context) (embedding.Embedder, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model download failed")
		}
		return NewHashEmbedder(4)
	})

	_, err := lazy.EmbedStrings(context.Background(), []string{"a"})
	require.Error(t, err)
	_, err = lazy.EmbedStrings(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, lazy.Loads())
}

func TestHashEmbedder(t *testing.T) {
	h, err := NewHashEmbedder(64)
	require.NoError(t, err)

	vecs, err := h.EmbedStrings(context.Background(), []string{"Lisbon beaches", "lisbon BEACHES", "", "Tokyo ramen"})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	assert.Equal(t, vecs[0], vecs[1], "tokenisation is case-insensitive")
	var norm float64
	for _, x := range vecs[0] {
		norm += x * x
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-9)
	assert.Equal(t, make([]float64, 64), vecs[2])
	assert.Less(t, CosineDistance(vecs[0], vecs[1]), CosineDistance(vecs[0], vecs[3]))

	_, err = NewHashEmbedder(0)
	assert.Error(t, err)
}
