package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is the persisted unit of embedding and retrieval. ChunkIndex is
// 0-based and unique within a document; retrieval and summarization rely on
// it to reconstruct reading order. Chunks are written in a batch at
// ingestion time and immutable thereafter.
type Chunk struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
