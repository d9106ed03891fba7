package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/pkg/apperr"
	"ai-docchat-be/pkg/chunker"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/answercache"
	"ai-docchat-be/pkg/rag/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher records every payload handed to the ingest transport.
type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

type documentFixture struct {
	store     *memoryStore
	documents IDocumentService
	publisher *fakePublisher
	completer *fakeCompleter
	chunkRepo *fakeChunkRepo
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	store := newMemoryStore()
	factory := &fakeFactory{store: store}
	embedder := embedding.NewBatchClient(&fakeEmbedder{}, 64)
	log := logger.NewNopLogger()

	chunkRepo := &fakeChunkRepo{store: store}
	engine := retrieval.NewEngine(embedder, chunkRepo, &fakeDocumentRepo{store: store}, log)
	completer := &fakeCompleter{answer: "a concise summary"}
	orchestrator := rag.NewOrchestrator(engine, completer, log)
	publisher := &fakePublisher{}
	ingest := NewIngestService(factory, chunker.NewSplitter(40, 0), embedder, log)

	return &documentFixture{
		store:     store,
		documents: NewDocumentService(factory, publisher, ingest, engine, orchestrator, answercache.New(16), time.Minute, 10, 0.5, 20, nil, log),
		publisher: publisher,
		completer: completer,
		chunkRepo: chunkRepo,
	}
}

func TestUploadPublishesIngestMessage(t *testing.T) {
	f := newDocumentFixture(t)
	userId := uuid.New()

	res, err := f.documents.Upload(context.Background(), userId, &dto.UploadDocumentRequest{
		Title:   "Go notes",
		Content: threeParagraphs,
	})
	require.NoError(t, err)

	assert.Equal(t, "ingesting", res.Status)
	assert.Contains(t, f.store.documents, res.Id)

	require.Len(t, f.publisher.payloads, 1)
	var msg dto.IngestDocumentMessage
	require.NoError(t, json.Unmarshal(f.publisher.payloads[0], &msg))
	assert.Equal(t, res.Id, msg.DocumentId)
}

func TestUploadRejectsBlankContent(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.documents.Upload(context.Background(), uuid.New(), &dto.UploadDocumentRequest{
		Title:   "empty",
		Content: "   \n\t ",
	})
	require.ErrorIs(t, err, apperr.ErrEmptyInput)
	assert.Empty(t, f.store.documents)
	assert.Empty(t, f.publisher.payloads)
}

func TestSynchronousIngestReturnsChunkCount(t *testing.T) {
	f := newDocumentFixture(t)
	userId := uuid.New()
	document := seedDocument(f.store, userId, "Go notes", threeParagraphs)

	res, err := f.documents.Ingest(context.Background(), userId, document.Id)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, document.Id, res.DocumentId)
	assert.Equal(t, "ready", res.Status)
	assert.Greater(t, res.ChunkCount, 1)
	assert.Len(t, f.store.chunks, res.ChunkCount)
}

func TestSynchronousReingestReplacesChunks(t *testing.T) {
	f := newDocumentFixture(t)
	userId := uuid.New()
	document := seedDocument(f.store, userId, "Go notes", threeParagraphs)

	first, err := f.documents.Ingest(context.Background(), userId, document.Id)
	require.NoError(t, err)

	second, err := f.documents.Ingest(context.Background(), userId, document.Id)
	require.NoError(t, err, "re-ingestion must replace the chunk set, not collide with it")
	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Len(t, f.store.chunks, second.ChunkCount, "old rows are gone, not shadowing the ordinals")
}

func TestIngestForeignDocumentNotFound(t *testing.T) {
	f := newDocumentFixture(t)
	document := seedDocument(f.store, uuid.New(), "theirs", threeParagraphs)

	res, err := f.documents.Ingest(context.Background(), uuid.New(), document.Id)
	require.NoError(t, err)
	assert.Nil(t, res, "another user's document looks like it does not exist")
	assert.Empty(t, f.store.chunks)
}

func TestDeleteCascadesToChunks(t *testing.T) {
	f := newDocumentFixture(t)
	userId := uuid.New()
	document := seedDocument(f.store, userId, "Go notes", threeParagraphs)

	_, err := f.documents.Ingest(context.Background(), userId, document.Id)
	require.NoError(t, err)
	require.NotEmpty(t, f.store.chunks)

	require.NoError(t, f.documents.Delete(context.Background(), userId, document.Id))
	assert.Empty(t, f.store.documents)
	assert.Empty(t, f.store.chunks)
}

func TestSemanticSearchAppliesConfiguredDefaults(t *testing.T) {
	f := newDocumentFixture(t)
	userId := uuid.New()
	document := seedDocument(f.store, userId, "Go notes", threeParagraphs)

	_, err := f.documents.Ingest(context.Background(), userId, document.Id)
	require.NoError(t, err)

	_, err = f.documents.SemanticSearch(context.Background(), userId, "goroutines", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 10, f.chunkRepo.lastLimit, "absent limit falls back to the configured default")
	assert.Equal(t, 0.5, f.chunkRepo.lastThreshold, "absent threshold falls back to the configured default")
}

func TestSummarizeCachesResult(t *testing.T) {
	f := newDocumentFixture(t)
	userId := uuid.New()
	document := seedDocument(f.store, userId, "Go notes", threeParagraphs)

	_, err := f.documents.Ingest(context.Background(), userId, document.Id)
	require.NoError(t, err)

	first, err := f.documents.Summarize(context.Background(), userId, document.Id)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "a concise summary", first.Summary)
	assert.Greater(t, first.ChunksUsed, 0)
	require.Len(t, first.Sources, 1)
	assert.Equal(t, document.Id, first.Sources[0].DocumentId)
	assert.Equal(t, "Go notes", first.Sources[0].DocumentTitle)
	assert.Equal(t, first.ChunksUsed, first.Sources[0].ChunkCount)

	second, err := f.documents.Summarize(context.Background(), userId, document.Id)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, f.completer.calls, "the repeat summary never reaches the model")
}
