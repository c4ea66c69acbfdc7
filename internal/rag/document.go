// Package rag builds and queries the travel document index used to ground
// airport, hotel and restaurant lookups.
package rag

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Document is a loaded source file.
type Document struct {
	Content  string
	Source   string
	FileType string
}

// DocumentChunk is a bounded slice of a Document. It maps 1:1 to an index
// record once embedded.
type DocumentChunk struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	DocIndex   int    `json:"doc_index"`
	ChunkIndex int    `json:"chunk_index"`
	Length     int    `json:"length"`
}

// ID depends only on the source and the chunk's position within it, so
// adding or removing other files never renames a chunk.
func (c DocumentChunk) ID() string {
	return fmt.Sprintf("%s-%d", hashString(c.Source), c.ChunkIndex)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}
