package rag

import (
	"strings"
	"unicode/utf8"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

// Chunker splits text into overlapping fixed-size windows measured in runes.
type Chunker struct {
	window  int
	overlap int
}

// NewChunker validates the window parameters. overlap >= window would never
// advance, so it is rejected.
func NewChunker(window, overlap int) (*Chunker, error) {
	if window <= 0 {
		return nil, errx.Configuration("chunk size must be positive, got %d", window)
	}
	if overlap < 0 {
		return nil, errx.Configuration("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= window {
		return nil, errx.Configuration("chunk overlap %d must be smaller than chunk size %d", overlap, window)
	}
	return &Chunker{window: window, overlap: overlap}, nil
}

// ChunkText returns the trimmed windows of text in order. Windows that are
// empty after trimming are dropped.
func (c *Chunker) ChunkText(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if !utf8.ValidString(text) {
		runes = []rune(strings.ToValidUTF8(text, "�"))
	}

	n := len(runes)
	step := c.window - c.overlap
	var out []string
	for start := 0; start < n; start += step {
		end := min(start+c.window, n)
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		// a later window would be entirely contained in this one
		if end == n {
			break
		}
	}
	return out
}

// ChunkDocuments chunks every document and tags each piece with provenance.
func (c *Chunker) ChunkDocuments(docs []Document) []DocumentChunk {
	var chunks []DocumentChunk
	for di, doc := range docs {
		for ci, text := range c.ChunkText(doc.Content) {
			chunks = append(chunks, DocumentChunk{
				Text:       text,
				Source:     doc.Source,
				DocIndex:   di,
				ChunkIndex: ci,
				Length:     utf8.RuneCountInString(text),
			})
		}
	}
	return chunks
}
