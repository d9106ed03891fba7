package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeChunkStore struct {
	scored    []*contract.ScoredChunk
	searchErr error

	byDocument map[uuid.UUID][]*entity.Chunk
	failDocs   map[uuid.UUID]bool
}

func (f *fakeChunkStore) SearchSimilar(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64, documentIds []uuid.UUID) ([]*contract.ScoredChunk, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	// Mirror the store contract: threshold floor, descending order, limit cap.
	var out []*contract.ScoredChunk
	for _, s := range f.scored {
		if s.Similarity >= threshold {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChunkStore) FindByDocumentId(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error) {
	if f.failDocs[documentId] {
		return nil, errors.New("connection reset")
	}
	return f.byDocument[documentId], nil
}

type fakeDocumentStore struct {
	documents []*entity.Document
}

func (f *fakeDocumentStore) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range f.documents {
		for _, id := range ids {
			if d.Id == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func scoredChunk(docId uuid.UUID, title string, index int, similarity float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk: &entity.Chunk{
			Id:         uuid.New(),
			DocumentId: docId,
			ChunkIndex: index,
			Content:    fmt.Sprintf("chunk %d of %s", index, title),
		},
		DocumentTitle: title,
		Similarity:    similarity,
	}
}

func docChunks(docId uuid.UUID, n int) []*entity.Chunk {
	chunks := make([]*entity.Chunk, n)
	for i := range chunks {
		chunks[i] = &entity.Chunk{
			Id:         uuid.New(),
			DocumentId: docId,
			ChunkIndex: i,
			Content:    fmt.Sprintf("chunk %d", i),
		}
	}
	return chunks
}

func TestRetrieveRankedBySimilarity(t *testing.T) {
	userId := uuid.New()
	docId := uuid.New()
	store := &fakeChunkStore{
		scored: []*contract.ScoredChunk{
			scoredChunk(docId, "Doc", 0, 0.61),
			scoredChunk(docId, "Doc", 1, 0.92),
			scoredChunk(docId, "Doc", 2, 0.44),
			scoredChunk(docId, "Doc", 3, 0.75),
		},
	}
	engine := NewEngine(&fakeEmbedder{}, store, &fakeDocumentStore{}, logger.NewNopLogger())

	results, err := engine.Retrieve(context.Background(), userId, "what is chunk one about", 3, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 3, "result count must not exceed limit")

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity, "scores must be non-increasing")
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.5, "no result below threshold")
	}
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeChunkStore{}, &fakeDocumentStore{}, logger.NewNopLogger())

	results, err := engine.Retrieve(context.Background(), uuid.New(), "anything at all", 5, 0.5, nil)
	require.NoError(t, err, "an empty corpus is a valid, non-error outcome")
	assert.Empty(t, results)
}

func TestRetrieveBlankQuery(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeChunkStore{}, &fakeDocumentStore{}, logger.NewNopLogger())

	_, err := engine.Retrieve(context.Background(), uuid.New(), "   ", 5, 0.5, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRetrieveStoreFailureSurfaces(t *testing.T) {
	store := &fakeChunkStore{searchErr: errors.New("db down")}
	engine := NewEngine(&fakeEmbedder{}, store, &fakeDocumentStore{}, logger.NewNopLogger())

	_, err := engine.Retrieve(context.Background(), uuid.New(), "a question", 5, 0.5, nil)
	assert.ErrorIs(t, err, apperr.ErrRetrievalStore, "store failure must never read as empty results")
}

func TestRetrieveComparisonModeBalancesDocuments(t *testing.T) {
	userId := uuid.New()
	docA, docB, docC := uuid.New(), uuid.New(), uuid.New()

	store := &fakeChunkStore{
		byDocument: map[uuid.UUID][]*entity.Chunk{
			docA: docChunks(docA, 10),
			docB: docChunks(docB, 10),
			docC: docChunks(docC, 10),
		},
	}
	docs := &fakeDocumentStore{documents: []*entity.Document{
		{Id: docA, UserId: userId, Title: "A"},
		{Id: docB, UserId: userId, Title: "B"},
		{Id: docC, UserId: userId, Title: "C"},
	}}
	engine := NewEngine(&fakeEmbedder{}, store, docs, logger.NewNopLogger())

	results, err := engine.Retrieve(context.Background(), userId, "compare these documents", 9, 0.5, []uuid.UUID{docA, docB, docC})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 9)

	perDoc := map[uuid.UUID]int{}
	lastIndex := map[uuid.UUID]int{}
	for _, r := range results {
		perDoc[r.DocumentId]++
		assert.GreaterOrEqual(t, r.ChunkIndex, lastIndex[r.DocumentId], "chunks must stay in original document order")
		lastIndex[r.DocumentId] = r.ChunkIndex
	}
	for _, docId := range []uuid.UUID{docA, docB, docC} {
		assert.GreaterOrEqual(t, perDoc[docId], 2, "every selected document must contribute")
	}
}

func TestRetrieveComparisonModeSkipsFailedDocument(t *testing.T) {
	userId := uuid.New()
	docA, docB := uuid.New(), uuid.New()

	store := &fakeChunkStore{
		byDocument: map[uuid.UUID][]*entity.Chunk{
			docA: docChunks(docA, 4),
			docB: docChunks(docB, 4),
		},
		failDocs: map[uuid.UUID]bool{docB: true},
	}
	docs := &fakeDocumentStore{documents: []*entity.Document{
		{Id: docA, UserId: userId, Title: "A"},
		{Id: docB, UserId: userId, Title: "B"},
	}}
	engine := NewEngine(&fakeEmbedder{}, store, docs, logger.NewNopLogger())

	results, err := engine.Retrieve(context.Background(), userId, "difference between these", 8, 0.5, []uuid.UUID{docA, docB})
	require.NoError(t, err, "partial context is preferable to no answer")
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, docA, r.DocumentId)
	}
}

func TestRetrieveComparisonModeAllFailedYieldsEmpty(t *testing.T) {
	userId := uuid.New()
	docA, docB := uuid.New(), uuid.New()

	store := &fakeChunkStore{
		failDocs: map[uuid.UUID]bool{docA: true, docB: true},
	}
	docs := &fakeDocumentStore{documents: []*entity.Document{
		{Id: docA, UserId: userId, Title: "A"},
		{Id: docB, UserId: userId, Title: "B"},
	}}
	engine := NewEngine(&fakeEmbedder{}, store, docs, logger.NewNopLogger())

	results, err := engine.Retrieve(context.Background(), userId, "compare them", 6, 0.5, []uuid.UUID{docA, docB})
	require.NoError(t, err)
	assert.Empty(t, results, "all documents failing collapses to the no-context outcome")
}

func TestRetrieveSingleSelectionIgnoresComparisonMode(t *testing.T) {
	userId := uuid.New()
	docId := uuid.New()
	store := &fakeChunkStore{
		scored: []*contract.ScoredChunk{scoredChunk(docId, "Doc", 0, 0.8)},
	}
	engine := NewEngine(&fakeEmbedder{}, store, &fakeDocumentStore{}, logger.NewNopLogger())

	// Comparison phrasing but only one selected document: normal search.
	results, err := engine.Retrieve(context.Background(), userId, "compare the sections", 5, 0.5, []uuid.UUID{docId})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.8, results[0].Similarity, 1e-9)
}

func TestIsComparisonQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"What is the difference between A and B?", true},
		{"Compare the two proposals", true},
		{"revenue versus cost", true},
		{"a vs b", true},
		{"summarize both documents", true},
		{"what does each report conclude", true},
		{"What is machine learning?", false},
		{"How do I reach the office?", false}, // "reach" must not match "each"
		{"Explain the visa process", false},   // "vs" inside a word
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComparisonQuery(tt.query))
		})
	}
}
