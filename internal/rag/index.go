package rag

import (
	"context"
	"math"
)

// Record is one embedded chunk in an Index.
type Record struct {
	ID     string
	Vector []float64
	Chunk  DocumentChunk
}

// Match is a query hit. Distance is cosine distance in [0, 2].
type Match struct {
	ID       string
	Chunk    DocumentChunk
	Distance float64
}

// Index stores chunk vectors and answers nearest-neighbour queries.
//
// Upsert replaces records with an existing ID as a whole; within one batch
// the last record for an ID wins. Replace swaps the whole content for
// records atomically. Query returns at most topK matches ordered by
// ascending distance, ties in insertion order; an empty index yields an
// empty result rather than an error.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Replace(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float64, topK int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// CosineDistance returns 1 - cos(a, b). A zero vector is treated as
// orthogonal to everything, which gives distance 1.
func CosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push |cos| slightly past 1
	cos = math.Max(-1, math.Min(1, cos))
	return 1 - cos
}

// dedupeRecords keeps one record per ID: the last one, at the position of
// the first.
func dedupeRecords(records []Record) []Record {
	pos := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
