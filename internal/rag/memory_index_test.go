package rag

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, vec ...float64) Record {
	return Record{ID: id, Vector: vec, Chunk: DocumentChunk{Text: "text-" + id, Source: id + ".txt"}}
}

func TestMemoryIndex_QueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{
		rec("far", -1, 0),
		rec("near", 1, 0.1),
		rec("mid", 0, 1),
	}))

	got, err := idx.Query(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
	assert.InDelta(t, 2.0, got[2].Distance, 1e-9)
}

func TestMemoryIndex_TopKBounds(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Upsert(ctx, []Record{rec(fmt.Sprint(i), 1, float64(i))}))
	}

	got, err := idx.Query(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = idx.Query(ctx, []float64{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestMemoryIndex_EmptyReturnsEmpty(t *testing.T) {
	got, err := NewMemoryIndex(3).Query(context.Background(), []float64{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{rec("a", 1, 0), rec("b", 0, 1)}))
	require.NoError(t, idx.Upsert(ctx, []Record{rec("a", 0, 1)}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := idx.Query(ctx, []float64{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	// both now identical, "a" was inserted first
	assert.Equal(t, "a", got[0].ID)
	assert.InDelta(t, 0, got[0].Distance, 1e-9)
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{rec("first", 1, 1), rec("second", 1, 1), rec("third", 1, 1)}))

	got, err := idx.Query(ctx, []float64{1, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{rec("a", 1, 0)}))

	err := idx.Upsert(ctx, []Record{rec("b", 1, 0), rec("c", 1, 0, 0)})
	require.Error(t, err)
	n, _ := idx.Count(ctx)
	assert.Equal(t, 1, n, "a rejected batch must not be partially applied")

	_, err = idx.Query(ctx, []float64{1}, 1)
	assert.Error(t, err)
}

func TestMemoryIndex_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{rec("a", 1, 0), rec("b", 0, 1)}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				_ = idx.Upsert(ctx, []Record{rec("b", 0, float64(i+1))})
				return
			}
			got, err := idx.Query(ctx, []float64{1, 0}, 2)
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}(i)
	}
	wg.Wait()
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float64{1, 0}, []float64{-3, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float64{0, 0}, []float64{1, 0}))
}

func TestMemoryIndex_ReplaceSwapsContent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{rec("a", 1, 0), rec("b", 0, 1)}))

	require.NoError(t, idx.Replace(ctx, []Record{rec("c", 1, 1), rec("c", 1, 0)}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := idx.Query(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
	assert.InDelta(t, 0, got[0].Distance, 1e-9)
}

func TestMemoryIndex_ReplaceRejectsBadBatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, []Record{rec("a", 1, 0)}))

	require.Error(t, idx.Replace(ctx, []Record{rec("b", 1, 0, 0)}))

	n, _ := idx.Count(ctx)
	assert.Equal(t, 1, n)
}
