package rag

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	logx "github.com/wayfarer-planner/server/pkg/logger"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// chunkRow is the persisted form of a Record.
type chunkRow struct {
	ID         string          `gorm:"primaryKey;column:id"`
	Seq        int64           `gorm:"column:seq"`
	Text       string          `gorm:"column:text"`
	Source     string          `gorm:"column:source"`
	DocIndex   int             `gorm:"column:doc_index"`
	ChunkIndex int             `gorm:"column:chunk_index"`
	Length     int             `gorm:"column:length"`
	Embedding  pgvector.Vector `gorm:"column:embedding"`
}

type chunkMatchRow struct {
	chunkRow
	Distance float64 `gorm:"column:distance"`
}

// PGVectorIndex stores records in PostgreSQL using the pgvector extension.
// Distances use the cosine operator (<=>), matching MemoryIndex.
type PGVectorIndex struct {
	db        *gorm.DB
	table     string
	dimension int
	seq       atomic.Int64
}

// NewPGVectorIndex ensures the extension and table exist.
func NewPGVectorIndex(ctx context.Context, db *gorm.DB, table string, dimension int) (*PGVectorIndex, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id text PRIMARY KEY,
			seq bigint NOT NULL,
			text text NOT NULL,
			source text NOT NULL DEFAULT '',
			doc_index integer NOT NULL DEFAULT 0,
			chunk_index integer NOT NULL DEFAULT 0,
			length integer NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		)`, table, dimension),
	}
	for _, stmt := range stmts {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			logx.Error().Err(err).Str("table", table).Msg("failed to prepare pgvector table")
			return nil, fmt.Errorf("prepare pgvector table: %w", err)
		}
	}

	idx := &PGVectorIndex{db: db, table: table, dimension: dimension}
	idx.seq.Store(time.Now().UnixNano())
	return idx, nil
}

// Upsert writes the batch in one statement; existing ids keep their seq.
// Duplicate ids in the batch collapse to the last record, since Postgres
// rejects an upsert that touches a row twice.
func (p *PGVectorIndex) Upsert(ctx context.Context, records []Record) error {
	rows, err := p.toRows(records)
	if err != nil || len(rows) == 0 {
		return err
	}
	if err := p.insert(p.db.WithContext(ctx), rows); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(rows), err)
	}
	return nil
}

// Replace deletes every row and inserts records in one transaction.
func (p *PGVectorIndex) Replace(ctx context.Context, records []Record) error {
	rows, err := p.toRows(records)
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", p.table)).Error; err != nil {
			return err
		}
		for start := 0; start < len(rows); start += pgInsertBatch {
			if err := p.insert(tx, rows[start:min(start+pgInsertBatch, len(rows))]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace with %d records: %w", len(rows), err)
	}
	logx.Debug().Str("table", p.table).Int("rows", len(rows)).Msg("pgvector table replaced")
	return nil
}

const pgInsertBatch = 500

func (p *PGVectorIndex) toRows(records []Record) ([]chunkRow, error) {
	records = dedupeRecords(records)
	rows := make([]chunkRow, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record id is empty")
		}
		if len(r.Vector) != p.dimension {
			return nil, fmt.Errorf("vector dimension mismatch for %q: got %d, want %d", r.ID, len(r.Vector), p.dimension)
		}
		rows = append(rows, chunkRow{
			ID:         r.ID,
			Seq:        p.seq.Add(1),
			Text:       r.Chunk.Text,
			Source:     r.Chunk.Source,
			DocIndex:   r.Chunk.DocIndex,
			ChunkIndex: r.Chunk.ChunkIndex,
			Length:     r.Chunk.Length,
			Embedding:  pgvector.NewVector(toFloat32(r.Vector)),
		})
	}
	return rows, nil
}

func (p *PGVectorIndex) insert(db *gorm.DB, rows []chunkRow) error {
	return db.
		Table(p.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "source", "doc_index", "chunk_index", "length", "embedding"}),
		}).
		Create(&rows).Error
}

// Query implements Index.
func (p *PGVectorIndex) Query(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(vector), p.dimension)
	}

	var rows []chunkMatchRow
	err := p.db.WithContext(ctx).
		Table(p.table).
		Select("id, seq, text, source, doc_index, chunk_index, length, embedding <=> ? AS distance", pgvector.NewVector(toFloat32(vector))).
		Order("distance ASC, seq ASC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query nearest chunks: %w", err)
	}

	matches := make([]Match, len(rows))
	for i, r := range rows {
		matches[i] = Match{
			ID: r.ID,
			Chunk: DocumentChunk{
				Text:       r.Text,
				Source:     r.Source,
				DocIndex:   r.DocIndex,
				ChunkIndex: r.ChunkIndex,
				Length:     r.Length,
			},
			Distance: r.Distance,
		}
	}
	return matches, nil
}

// Count implements Index.
func (p *PGVectorIndex) Count(ctx context.Context) (int, error) {
	var n int64
	if err := p.db.WithContext(ctx).Table(p.table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int(n), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

var _ Index = (*PGVectorIndex)(nil)
