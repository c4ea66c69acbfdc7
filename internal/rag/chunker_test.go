package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

// rejoin undoes the overlap between consecutive chunks.
func rejoin(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		r := []rune(c)
		if i > 0 {
			r = r[min(overlap, len(r)):]
		}
		b.WriteString(string(r))
	}
	return b.String()
}

func TestChunkText_RoundTrip(t *testing.T) {
	texts := []string{
		"abcdefghijklmnopqrstuvwxyz0123456789",
		strings.Repeat("Lisbon-Porto-Faro.", 40),
		"東京大阪京都名古屋札幌福岡神戸横浜",
		"x",
	}
	params := [][2]int{{4, 1}, {5, 0}, {7, 3}, {10, 9}, {500, 50}}

	for _, text := range texts {
		for _, p := range params {
			c, err := NewChunker(p[0], p[1])
			require.NoError(t, err)
			chunks := c.ChunkText(text)
			require.NotEmpty(t, chunks)
			assert.Equal(t, text, rejoin(chunks, p[1]), "window=%d overlap=%d", p[0], p[1])
			for _, ch := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(ch), p[0])
				assert.True(t, utf8.ValidString(ch))
			}
		}
	}
}

func TestNewChunker_RejectsBadParameters(t *testing.T) {
	tests := []struct {
		name            string
		window, overlap int
	}{
		{"overlap equals window", 10, 10},
		{"overlap exceeds window", 10, 20},
		{"zero window", 0, 0},
		{"negative overlap", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.window, tt.overlap)
			require.Error(t, err)
			assert.True(t, errx.IsKind(err, errx.KindConfiguration))
		})
	}
}

func TestChunkText_EdgeCases(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	assert.Empty(t, c.ChunkText(""))
	assert.Empty(t, c.ChunkText("          "))

	chunks := c.ChunkText("abcdefghij")
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)

	chunks = c.ChunkText("abcdefgh")
	require.Len(t, chunks, 3)
	assert.Equal(t, "gh", chunks[2], "last chunk may be shorter than the window")
}

func TestChunkDocuments_Metadata(t *testing.T) {
	c, err := NewChunker(5, 0)
	require.NoError(t, err)
	chunks := c.ChunkDocuments([]Document{
		{Content: "aaaaabbbbb", Source: "a.txt"},
		{Content: "ccc", Source: "b.txt"},
	})
	require.Len(t, chunks, 3)
	assert.Equal(t, DocumentChunk{Text: "bbbbb", Source: "a.txt", DocIndex: 0, ChunkIndex: 1, Length: 5}, chunks[1])
	assert.Equal(t, 1, chunks[2].DocIndex)
	assert.NotEqual(t, chunks[0].ID(), chunks[1].ID())
	assert.Equal(t, chunks[0].ID(), chunks[0].ID())
}
