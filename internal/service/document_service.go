package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/apperr"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/answercache"
	"ai-docchat-be/pkg/rag/retrieval"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID) (*dto.ListDocumentsResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Ingest(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.IngestDocumentResponse, error)
	SemanticSearch(ctx context.Context, userId uuid.UUID, query string, limit int, threshold float64) (*dto.SemanticSearchResponse, error)
	Summarize(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SummarizeDocumentResponse, error)
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	ingestService    IIngestService
	retriever        *retrieval.Engine
	orchestrator     *rag.Orchestrator
	cache            *answercache.Cache
	cacheTTL         time.Duration
	defaultLimit     int
	defaultThreshold float64
	maxSummaryChunks int
	eventPublisher   *pktNats.Publisher
	log              logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	ingestService IIngestService,
	retriever *retrieval.Engine,
	orchestrator *rag.Orchestrator,
	cache *answercache.Cache,
	cacheTTL time.Duration,
	defaultLimit int,
	defaultThreshold float64,
	maxSummaryChunks int,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		ingestService:    ingestService,
		retriever:        retriever,
		orchestrator:     orchestrator,
		cache:            cache,
		cacheTTL:         cacheTTL,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
		maxSummaryChunks: maxSummaryChunks,
		eventPublisher:   eventPublisher,
		log:              log,
	}
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: document content is empty", apperr.ErrEmptyInput)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	document := entity.Document{
		Id:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		UserId:    userId,
		CreatedAt: time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	msgJson, err := json.Marshal(dto.IngestDocumentMessage{DocumentId: document.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.TypeDocumentUploaded, document.Id, userId)

	return &dto.UploadDocumentResponse{
		Id:     document.Id,
		Status: "ingesting",
	}, nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID) (*dto.ListDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderByCreatedAt{Desc: true},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.DocumentItem, 0, len(documents))
	for _, d := range documents {
		count, err := uow.ChunkRepository().Count(ctx, specification.ByDocumentID{DocumentID: d.Id})
		if err != nil {
			return nil, err
		}
		items = append(items, dto.DocumentItem{
			Id:         d.Id,
			Title:      d.Title,
			ChunkCount: int(count),
			CreatedAt:  d.CreatedAt,
		})
	}

	return &dto.ListDocumentsResponse{
		Documents: items,
		Total:     int64(len(items)),
	}, nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil // not found
	}

	count, err := uow.ChunkRepository().Count(ctx, specification.ByDocumentID{DocumentID: id})
	if err != nil {
		return nil, err
	}

	return &dto.ShowDocumentResponse{
		Id:         document.Id,
		Title:      document.Title,
		Content:    document.Content,
		ChunkCount: int(count),
		CreatedAt:  document.CreatedAt,
		UpdatedAt:  document.UpdatedAt,
	}, nil
}

func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if document == nil {
		return nil // already gone
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	// Cached answers may cite the deleted document; dropping the whole cache
	// is simpler than tracking which keys touched it.
	s.cache.Clear()

	s.publishEvent(ctx, events.TypeDocumentDeleted, id, userId)
	return nil
}

// Ingest runs the chunk/embed pipeline inline instead of through the event
// consumer, for callers that need the chunk count right away.
func (s *documentService) Ingest(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.IngestDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil // not found
	}

	result, err := s.ingestService.Ingest(ctx, id)
	if err != nil {
		return nil, err
	}

	// Re-ingestion rewrites the chunk set, so answers built on the old
	// chunks are stale.
	s.cache.Clear()

	return &dto.IngestDocumentResponse{
		DocumentId: result.DocumentId,
		ChunkCount: result.ChunkCount,
		Status:     "ready",
	}, nil
}

func (s *documentService) SemanticSearch(ctx context.Context, userId uuid.UUID, query string, limit int, threshold float64) (*dto.SemanticSearchResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	results, err := s.retriever.Retrieve(ctx, userId, query, limit, threshold, nil)
	if err != nil {
		return nil, err
	}

	items := make([]dto.SemanticSearchResult, 0, len(results))
	for _, r := range results {
		items = append(items, dto.SemanticSearchResult{
			ChunkId:       r.ChunkId,
			DocumentId:    r.DocumentId,
			DocumentTitle: r.DocumentTitle,
			Content:       r.Content,
			ChunkIndex:    r.ChunkIndex,
			Similarity:    r.Similarity,
		})
	}

	return &dto.SemanticSearchResponse{Results: items}, nil
}

func (s *documentService) Summarize(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SummarizeDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil // not found
	}

	key := summaryCacheKey(userId, id, s.maxSummaryChunks)
	value, err := s.cache.GetOrCompute(ctx, key, s.cacheTTL, func(ctx context.Context) (any, error) {
		chunks, err := uow.ChunkRepository().FindByDocumentId(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrRetrievalStore, err)
		}
		return s.orchestrator.Summarize(ctx, id, document.Title, chunks, s.maxSummaryChunks)
	})
	if err != nil {
		return nil, err
	}
	answer := value.(*rag.Answer)

	sources := make([]dto.AnswerSource, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, dto.AnswerSource{
			DocumentId:    src.DocumentId,
			DocumentTitle: src.DocumentTitle,
			ChunkCount:    src.ChunkCount,
			MaxSimilarity: src.MaxSimilarity,
		})
	}

	return &dto.SummarizeDocumentResponse{
		DocumentId: id,
		Summary:    answer.Text,
		Sources:    sources,
		ChunksUsed: answer.ChunksUsed,
	}, nil
}

// publishEvent emits a lifecycle event for auxiliary consumers. Failures are
// logged, never surfaced: the request already succeeded.
func (s *documentService) publishEvent(ctx context.Context, eventType string, documentId, userId uuid.UUID) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"document_id": documentId,
			"user_id":     userId,
		},
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("Document", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func summaryCacheKey(userId, documentId uuid.UUID, maxChunks int) string {
	return fmt.Sprintf("summarize|%s|%s|%d", userId, documentId, maxChunks)
}

// askCacheKey canonicalizes an answer's inputs: the document scope is sorted
// so the same selection in a different order hits the same entry.
func askCacheKey(userId uuid.UUID, query string, limit int, threshold float64, documentIds []uuid.UUID) string {
	scope := make([]string, len(documentIds))
	for i, id := range documentIds {
		scope[i] = id.String()
	}
	sort.Strings(scope)
	return fmt.Sprintf("ask|%s|%s|%d|%g|%s", userId, strings.TrimSpace(query), limit, threshold, strings.Join(scope, ","))
}
