package rag

import (
	"context"
	"fmt"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/pkg/apperr"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag/prompt"
	"ai-docchat-be/pkg/rag/retrieval"

	"github.com/google/uuid"
)

// NoContextAnswer is returned verbatim when retrieval finds nothing above
// the similarity threshold. It is a successful answer, not an error.
const NoContextAnswer = "I couldn't find relevant information about that in your documents."

// EmptyDocumentSummary is returned for a document with no ingested chunks.
const EmptyDocumentSummary = "This document has no content to summarize."

// Source describes one document's contribution to an answer.
type Source struct {
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkCount    int       `json:"chunk_count"`
	MaxSimilarity float64   `json:"max_similarity"`
}

// Answer is the orchestrator's result: the generated text plus per-document
// attribution of the context it was grounded on.
type Answer struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	ChunksUsed int      `json:"chunks_used"`
}

// Retriever is the slice of the retrieval engine the orchestrator needs.
type Retriever interface {
	Retrieve(ctx context.Context, userId uuid.UUID, query string, limit int, threshold float64, documentIds []uuid.UUID) ([]retrieval.Result, error)
}

// Orchestrator runs the full question pipeline: retrieve, build a grounded
// prompt, and make exactly one LLM call per question.
type Orchestrator struct {
	retriever Retriever
	provider  llm.Provider
	log       logger.ILogger
}

func NewOrchestrator(retriever Retriever, provider llm.Provider, log logger.ILogger) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		provider:  provider,
		log:       log,
	}
}

// Ask answers a question from the user's documents. When retrieval yields
// nothing the fixed no-context answer is returned with zero sources; the
// LLM is never called on an empty context.
func (o *Orchestrator) Ask(ctx context.Context, userId uuid.UUID, query string, limit int, threshold float64, documentIds []uuid.UUID) (*Answer, error) {
	results, err := o.retriever.Retrieve(ctx, userId, query, limit, threshold, documentIds)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		o.log.Info("Orchestrator", "No relevant context found", map[string]interface{}{
			"user_id": userId.String(),
		})
		return &Answer{Text: NoContextAnswer, Sources: []Source{}}, nil
	}

	comparison := retrieval.IsComparisonQuery(query) && len(documentIds) > 1
	promptText := prompt.NewContextualBuilder(query, results, comparison).Build()

	text, err := o.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: promptText},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCompletionProvider, err)
	}

	answer := &Answer{
		Text:       text,
		Sources:    groupSources(results),
		ChunksUsed: len(results),
	}
	o.log.Info("Orchestrator", "Answer generated", map[string]interface{}{
		"user_id":     userId.String(),
		"chunks_used": answer.ChunksUsed,
		"sources":     len(answer.Sources),
	})
	return answer, nil
}

// Summarize condenses one document from its leading chunks, which arrive in
// reading order. maxChunks caps how much of the document is fed to the LLM;
// a document with no chunks yields a fixed summary without an LLM call. The
// answer carries the document as its single source. Chunks are selected by
// position, not ranked, so the source's MaxSimilarity is 1 as in
// comparison-mode retrieval.
func (o *Orchestrator) Summarize(ctx context.Context, documentId uuid.UUID, title string, chunks []*entity.Chunk, maxChunks int) (*Answer, error) {
	if len(chunks) == 0 {
		return &Answer{Text: EmptyDocumentSummary, Sources: []Source{}}, nil
	}
	if maxChunks > 0 && len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}

	sections := make([]string, len(chunks))
	for i, c := range chunks {
		sections[i] = c.Content
	}

	text, err := o.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt.NewSummaryBuilder(title, sections).Build()},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCompletionProvider, err)
	}

	return &Answer{
		Text: text,
		Sources: []Source{{
			DocumentId:    documentId,
			DocumentTitle: title,
			ChunkCount:    len(chunks),
			MaxSimilarity: 1,
		}},
		ChunksUsed: len(chunks),
	}, nil
}

// groupSources folds chunk-level results into one source per document,
// preserving first-seen order.
func groupSources(results []retrieval.Result) []Source {
	index := make(map[uuid.UUID]int, len(results))
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		i, seen := index[r.DocumentId]
		if !seen {
			index[r.DocumentId] = len(sources)
			sources = append(sources, Source{
				DocumentId:    r.DocumentId,
				DocumentTitle: r.DocumentTitle,
			})
			i = len(sources) - 1
		}
		sources[i].ChunkCount++
		if r.Similarity > sources[i].MaxSimilarity {
			sources[i].MaxSimilarity = r.Similarity
		}
	}
	return sources
}
