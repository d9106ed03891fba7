package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/apperr"
	"ai-docchat-be/pkg/chunker"
	"ai-docchat-be/pkg/embedding"

	"github.com/google/uuid"
)

// IngestResult reports one completed ingestion run.
type IngestResult struct {
	DocumentId uuid.UUID
	UserId     uuid.UUID
	ChunkCount int
}

type IIngestService interface {
	// Ingest rebuilds a document's chunks and embeddings. Old chunks are
	// replaced in one transaction, so a reader never sees a half-ingested
	// document.
	Ingest(ctx context.Context, documentId uuid.UUID) (*IngestResult, error)
}

type ingestService struct {
	uowFactory unitofwork.RepositoryFactory
	splitter   *chunker.Splitter
	embedder   embedding.Provider
	log        logger.ILogger
}

func NewIngestService(
	uowFactory unitofwork.RepositoryFactory,
	splitter *chunker.Splitter,
	embedder embedding.Provider,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		uowFactory: uowFactory,
		splitter:   splitter,
		embedder:   embedder,
		log:        log,
	}
}

func (s *ingestService) Ingest(ctx context.Context, documentId uuid.UUID) (*IngestResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, fmt.Errorf("document %s not found", documentId)
	}

	chunks, err := s.splitter.Split(document.Content)
	if err != nil && !errors.Is(err, apperr.ErrEmptyInput) {
		return nil, fmt.Errorf("split document %s: %w", documentId, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed document %s: %w", documentId, err)
		}
	}

	newChunks := make([]*entity.Chunk, len(chunks))
	for i, c := range chunks {
		newChunks[i] = &entity.Chunk{
			Id:         uuid.New(),
			DocumentId: document.Id,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Embedding:  vectors[i],
			Metadata: map[string]any{
				"token_count": c.TokenCount,
			},
			CreatedAt: time.Now(),
		}
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		return nil, err
	}
	if len(newChunks) > 0 {
		if err := uow.ChunkRepository().CreateBulk(ctx, newChunks); err != nil {
			return nil, err
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("Ingest", "Document ingested", map[string]interface{}{
		"document_id": document.Id.String(),
		"chunks":      len(newChunks),
	})

	return &IngestResult{
		DocumentId: document.Id,
		UserId:     document.UserId,
		ChunkCount: len(newChunks),
	}, nil
}
