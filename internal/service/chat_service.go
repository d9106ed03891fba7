package service

import (
	"context"
	"fmt"
	"time"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/apperr"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/answercache"
	"ai-docchat-be/pkg/store"

	"github.com/google/uuid"
)

type IChatService interface {
	Ask(ctx context.Context, userId uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error)
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionItem, error)
	ListSessions(ctx context.Context, userId uuid.UUID) (*dto.ListSessionsResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	History(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionHistoryResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	orchestrator     *rag.Orchestrator
	cache            *answercache.Cache
	sessionRepo      *memory.SessionRepository
	defaultLimit     int
	defaultThreshold float64
	cacheTTL         time.Duration
	log              logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *rag.Orchestrator,
	cache *answercache.Cache,
	sessionRepo *memory.SessionRepository,
	defaultLimit int,
	defaultThreshold float64,
	cacheTTL time.Duration,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		orchestrator:     orchestrator,
		cache:            cache,
		sessionRepo:      sessionRepo,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
		cacheTTL:         cacheTTL,
		log:              log,
	}
}

func (s *chatService) Ask(ctx context.Context, userId uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := s.resolveSession(ctx, uow, userId, req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	// A follow-up question with no explicit scope inherits the previous
	// question's document selection.
	documentIds := req.DocumentIds
	if len(documentIds) == 0 {
		if state, ok := s.sessionRepo.Get(session.Id.String()); ok {
			for _, raw := range state.DocumentIDs {
				if id, err := uuid.Parse(raw); err == nil {
					documentIds = append(documentIds, id)
				}
			}
		}
	}

	key := askCacheKey(userId, req.Query, limit, threshold, documentIds)
	cached := s.cache.Has(key)

	value, err := s.cache.GetOrCompute(ctx, key, s.cacheTTL, func(ctx context.Context) (any, error) {
		return s.orchestrator.Ask(ctx, userId, req.Query, limit, threshold, documentIds)
	})
	if err != nil {
		return nil, err
	}
	answer := value.(*rag.Answer)

	if err := s.persistExchange(ctx, uow, session.Id, req.Query, answer); err != nil {
		// History is best-effort; the answer itself already succeeded.
		s.log.Warn("Chat", "Failed to persist exchange", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}

	scope := make([]string, len(documentIds))
	for i, id := range documentIds {
		scope[i] = id.String()
	}
	s.sessionRepo.Save(&store.SessionState{
		ID:          session.Id.String(),
		UserID:      userId.String(),
		LastQuery:   req.Query,
		DocumentIDs: scope,
	})

	sources := make([]dto.AnswerSource, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, dto.AnswerSource{
			DocumentId:    src.DocumentId,
			DocumentTitle: src.DocumentTitle,
			ChunkCount:    src.ChunkCount,
			MaxSimilarity: src.MaxSimilarity,
		})
	}

	return &dto.AskResponse{
		SessionId:  session.Id,
		Answer:     answer.Text,
		Sources:    sources,
		ChunksUsed: answer.ChunksUsed,
		Cached:     cached,
	}, nil
}

// resolveSession returns the session to attach this exchange to, creating
// one when the request names none. A session id that does not belong to the
// caller is invalid input, not a silent new session.
func (s *chatService) resolveSession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, req *dto.AskRequest) (*entity.ChatSession, error) {
	if req.SessionId != nil {
		session, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: *req.SessionId},
			specification.ByUserID{UserID: userId},
		)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, fmt.Errorf("%w: unknown session %s", apperr.ErrInvalidInput, req.SessionId)
		}
		return session, nil
	}

	title := req.Query
	if runes := []rune(title); len(runes) > 80 {
		// Cut on runes so a multi-byte character never gets split.
		title = string(runes[:80])
	}
	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *chatService) persistExchange(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, query string, answer *rag.Answer) error {
	if err := uow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          llm.RoleUser,
		Content:       query,
		CreatedAt:     time.Now(),
	}); err != nil {
		return err
	}
	return uow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          llm.RoleAssistant,
		Content:       answer.Text,
		ChunksUsed:    answer.ChunksUsed,
		CreatedAt:     time.Now(),
	})
}

func (s *chatService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	title := req.Title
	if title == "" {
		title = "New chat"
	}
	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	return &dto.SessionItem{
		Id:        session.Id,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
	}, nil
}

func (s *chatService) ListSessions(ctx context.Context, userId uuid.UUID) (*dto.ListSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderByCreatedAt{Desc: true},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.SessionItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, dto.SessionItem{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
		})
	}
	return &dto.ListSessionsResponse{Sessions: items}, nil
}

func (s *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if session == nil {
		return nil // already gone
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.sessionRepo.Delete(sessionId.String())
	return nil
}

func (s *chatService) History(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil // not found
	}

	messages, err := uow.ChatMessageRepository().FindBySessionId(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	items := make([]dto.MessageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, dto.MessageItem{
			Id:         m.Id,
			Role:       m.Role,
			Content:    m.Content,
			ChunksUsed: m.ChunksUsed,
			CreatedAt:  m.CreatedAt,
		})
	}

	return &dto.SessionHistoryResponse{
		SessionId: sessionId,
		Messages:  items,
	}, nil
}
