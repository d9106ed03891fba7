package retrieval

import (
	"context"
	"fmt"
	"strings"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/apperr"
	"ai-docchat-be/pkg/embedding"

	"github.com/google/uuid"
)

// minPerDocument is the per-document floor in comparison mode: every
// selected document contributes at least this many chunks even when an even
// split of the limit would give it fewer.
const minPerDocument = 2

// ChunkStore is the slice of the chunk repository the engine needs.
type ChunkStore interface {
	SearchSimilar(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64, documentIds []uuid.UUID) ([]*contract.ScoredChunk, error)
	FindByDocumentId(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error)
}

// DocumentStore resolves document titles and ownership for comparison mode.
type DocumentStore interface {
	FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Document, error)
}

// Result is a transient retrieval hit, produced fresh per query.
type Result struct {
	ChunkId       uuid.UUID
	DocumentId    uuid.UUID
	DocumentTitle string
	Content       string
	ChunkIndex    int
	Similarity    float64
}

// Engine turns a query into a ranked list of relevant chunks.
//
// Normally it runs one similarity search with the given threshold, limit and
// optional document allow-list. When the query signals comparison intent and
// more than one document is explicitly selected, it switches to
// document-balanced mode: the limit is split evenly across the selected
// documents and each contributes its leading chunks in original order, so no
// single document can dominate the context.
type Engine struct {
	embedder  embedding.Provider
	chunks    ChunkStore
	documents DocumentStore
	log       logger.ILogger
}

func NewEngine(embedder embedding.Provider, chunks ChunkStore, documents DocumentStore, log logger.ILogger) *Engine {
	return &Engine{
		embedder:  embedder,
		chunks:    chunks,
		documents: documents,
		log:       log,
	}
}

// Retrieve returns up to limit chunks relevant to query. An empty result is
// a valid outcome ("no relevant context found"), never an error.
func (e *Engine) Retrieve(ctx context.Context, userId uuid.UUID, query string, limit int, threshold float64, documentIds []uuid.UUID) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: blank query", apperr.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if IsComparisonQuery(query) && len(documentIds) > 1 {
		return e.retrieveBalanced(ctx, userId, limit, documentIds)
	}

	scored, err := e.chunks.SearchSimilar(ctx, queryVector, limit, userId, threshold, documentIds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRetrievalStore, err)
	}

	results := make([]Result, 0, len(scored))
	for _, s := range scored {
		results = append(results, Result{
			ChunkId:       s.Chunk.Id,
			DocumentId:    s.Chunk.DocumentId,
			DocumentTitle: s.DocumentTitle,
			Content:       s.Chunk.Content,
			ChunkIndex:    s.Chunk.ChunkIndex,
			Similarity:    s.Similarity,
		})
	}
	return results, nil
}

// retrieveBalanced pulls each selected document's leading chunks in reading
// order, up to an even share of the limit. Per-document fetch failures are
// skipped and logged: partial context is preferable to no answer. Only when
// every document fails or yields nothing does the caller see an empty
// result.
func (e *Engine) retrieveBalanced(ctx context.Context, userId uuid.UUID, limit int, documentIds []uuid.UUID) ([]Result, error) {
	quota := limit / len(documentIds)
	if quota < minPerDocument {
		quota = minPerDocument
	}

	documents, err := e.documents.FindByIds(ctx, documentIds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRetrievalStore, err)
	}
	titles := make(map[uuid.UUID]string, len(documents))
	for _, d := range documents {
		if d.UserId == userId {
			titles[d.Id] = d.Title
		}
	}

	var results []Result
	for _, docId := range documentIds {
		title, owned := titles[docId]
		if !owned {
			e.log.Warn("Retrieval", "Skipping unknown or foreign document in comparison scope", map[string]interface{}{
				"document_id": docId.String(),
			})
			continue
		}

		chunks, err := e.chunks.FindByDocumentId(ctx, docId)
		if err != nil {
			e.log.Warn("Retrieval", "Per-document fetch failed, skipping", map[string]interface{}{
				"document_id": docId.String(),
				"error":       err.Error(),
			})
			continue
		}

		for i, c := range chunks {
			if i >= quota {
				break
			}
			results = append(results, Result{
				ChunkId:       c.Id,
				DocumentId:    c.DocumentId,
				DocumentTitle: title,
				Content:       c.Content,
				ChunkIndex:    c.ChunkIndex,
				Similarity:    1, // explicitly selected, not similarity-ranked
			})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
