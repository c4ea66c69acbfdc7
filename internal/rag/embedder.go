package rag

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/eino/components/embedding"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// EmbedderLoader performs the expensive one-time setup of an embedder.
type EmbedderLoader func(ctx context.Context) (embedding.Embedder, error)

type loadedEmbedder struct {
	embedding.Embedder
}

// LazyEmbedder defers loading the underlying embedder until first use and
// guarantees a single load under concurrent first calls. A failed load is
// not cached, so the next call tries again.
type LazyEmbedder struct {
	load  EmbedderLoader
	mu    sync.Mutex
	ready atomic.Pointer[loadedEmbedder]
	loads atomic.Int32
}

// NewLazyEmbedder wraps load.
func NewLazyEmbedder(load EmbedderLoader) *LazyEmbedder {
	return &LazyEmbedder{load: load}
}

func (l *LazyEmbedder) get(ctx context.Context) (embedding.Embedder, error) {
	if e := l.ready.Load(); e != nil {
		return e.Embedder, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.ready.Load(); e != nil {
		return e.Embedder, nil
	}

	emb, err := l.load(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("failed to initialise embedder")
		return nil, err
	}
	l.loads.Add(1)
	l.ready.Store(&loadedEmbedder{emb})
	logx.Debug().Msg("embedder initialised")
	return emb, nil
}

// EmbedStrings implements embedding.Embedder.
func (l *LazyEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	emb, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return emb.EmbedStrings(ctx, texts, opts...)
}

// Loads reports how many times the loader succeeded. It is at most 1.
func (l *LazyEmbedder) Loads() int {
	return int(l.loads.Load())
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder maps text to a fixed-dimension bag-of-words vector using
// feature hashing. It needs no model download and is deterministic.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns an embedder producing dim-sized unit vectors.
func NewHashEmbedder(dim int) (*HashEmbedder, error) {
	if dim <= 0 {
		return nil, errx.Configuration("embedding dimension must be positive, got %d", dim)
	}
	return &HashEmbedder{dim: dim}, nil
}

// EmbedStrings implements embedding.Embedder.
func (h *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, h.dim)
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dim))
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}
	normalize(vec)
	return vec
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}

var (
	_ embedding.Embedder = (*LazyEmbedder)(nil)
	_ embedding.Embedder = (*HashEmbedder)(nil)
)
