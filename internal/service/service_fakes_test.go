package service

import (
	"context"
	"sort"
	"sync"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/llm"

	"github.com/google/uuid"
)

// memoryStore is the shared backing state of the fake repositories. It is
// deliberately dumb: maps guarded by one mutex, no query planner.
type memoryStore struct {
	mu        sync.Mutex
	documents map[uuid.UUID]*entity.Document
	chunks    map[uuid.UUID]*entity.Chunk
	sessions  map[uuid.UUID]*entity.ChatSession
	messages  map[uuid.UUID]*entity.ChatMessage
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		documents: map[uuid.UUID]*entity.Document{},
		chunks:    map[uuid.UUID]*entity.Chunk{},
		sessions:  map[uuid.UUID]*entity.ChatSession{},
		messages:  map[uuid.UUID]*entity.ChatMessage{},
	}
}

type fakeFactory struct {
	store *memoryStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *memoryStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) DocumentRepository() contract.DocumentRepository {
	return &fakeDocumentRepo{store: u.store}
}

func (u *fakeUow) ChunkRepository() contract.ChunkRepository {
	return &fakeChunkRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

type fakeDocumentRepo struct {
	store *memoryStore
}

func (r *fakeDocumentRepo) Create(ctx context.Context, document *entity.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.documents[document.Id] = document
	return nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.documents, id)
	return nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, d := range r.store.documents {
		if matchesDocument(d, specs) {
			return d, nil
		}
	}
	return nil, nil
}

// matchesDocument interprets the specifications the services actually use.
// The real repositories translate them to SQL; the fake type-switches.
func matchesDocument(d *entity.Document, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if d.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if d.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.store.documents {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeDocumentRepo) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Document
	for _, id := range ids {
		if d, ok := r.store.documents[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.documents)), nil
}

type fakeChunkRepo struct {
	store *memoryStore

	// Parameters of the most recent SearchSimilar call, for asserting
	// that services pass their configured defaults through.
	lastLimit     int
	lastThreshold float64
}

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range chunks {
		r.store.chunks[c.Id] = c
	}
	return nil
}

func (r *fakeChunkRepo) FindByDocumentId(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Chunk
	for _, c := range r.store.chunks {
		if c.DocumentId == documentId {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (r *fakeChunkRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, c := range r.store.chunks {
		if c.DocumentId == documentId {
			delete(r.store.chunks, id)
		}
	}
	return nil
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.chunks)), nil
}

func (r *fakeChunkRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64, documentIds []uuid.UUID) ([]*contract.ScoredChunk, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.lastLimit = limit
	r.lastThreshold = threshold
	var out []*contract.ScoredChunk
	for _, c := range r.store.chunks {
		document, ok := r.store.documents[c.DocumentId]
		if !ok || document.UserId != userId {
			continue
		}
		out = append(out, &contract.ScoredChunk{
			Chunk:         c,
			DocumentTitle: document.Title,
			Similarity:    0.9,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chunk.ChunkIndex < out[j].Chunk.ChunkIndex })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSessionRepo struct {
	store *memoryStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sessions[session.Id] = session
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, session := range r.store.sessions {
		if matchesSession(session, specs) {
			return session, nil
		}
	}
	return nil, nil
}

func matchesSession(session *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if session.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if session.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ChatSession
	for _, s := range r.store.sessions {
		out = append(out, s)
	}
	return out, nil
}

type fakeMessageRepo struct {
	store *memoryStore
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messages[message.Id] = message
	return nil
}

func (r *fakeMessageRepo) FindBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ChatMessage
	for _, m := range r.store.messages {
		if m.ChatSessionId == sessionId {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, m := range r.store.messages {
		if m.ChatSessionId == sessionId {
			delete(r.store.messages, id)
		}
	}
	return nil
}

// fakeEmbedder produces deterministic vectors so tests can assert that every
// chunk got one.
type fakeEmbedder struct {
	batchCalls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

// fakeCompleter answers every prompt with a canned string and records how
// often the model was consulted.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	answer  string
	prompts []string
}

func (f *fakeCompleter) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, m := range history {
		f.prompts = append(f.prompts, m.Content)
	}
	return f.answer, nil
}

func (f *fakeCompleter) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
