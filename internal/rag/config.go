package rag

import "time"

// Config describes how the travel document index is built and stored.
type Config struct {
	DocsDir      string `envconfig:"RAG_DOCS_DIR" default:"./data"`
	ChunkSize    int    `envconfig:"RAG_CHUNK_SIZE" default:"500"`
	ChunkOverlap int    `envconfig:"RAG_CHUNK_OVERLAP" default:"50"`

	EmbeddingProvider  string        `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`
	EmbeddingModel     string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingDimension int           `envconfig:"EMBEDDING_DIMENSION" default:"768"`
	EmbeddingBatchSize int           `envconfig:"EMBEDDING_BATCH_SIZE" default:"32"`
	EmbeddingTimeout   time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"30s"`

	VectorStore   string `envconfig:"VECTOR_STORE" default:"memory"`
	PGVectorTable string `envconfig:"PGVECTOR_TABLE" default:"travel_chunks"`
}
