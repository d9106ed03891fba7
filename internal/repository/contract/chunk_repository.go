package contract

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk is a similarity-search hit: the chunk, its owning document's
// title (hydrated by the search join) and the cosine similarity in [0,1].
type ScoredChunk struct {
	Chunk         *entity.Chunk
	DocumentTitle string
	Similarity    float64
}

type ChunkRepository interface {
	// CreateBulk inserts a document's chunk set. Callers run it inside a
	// unit-of-work transaction so a document's chunks are never partially
	// written.
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error

	// FindByDocumentId returns the document's chunks in ordinal order.
	FindByDocumentId(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error)

	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error

	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilar returns chunks owned by userId whose cosine similarity to
	// embedding is >= threshold, descending by similarity, capped at limit.
	// A non-empty documentIds restricts results to those documents.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64, documentIds []uuid.UUID) ([]*ScoredChunk, error)
}
