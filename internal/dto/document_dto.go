package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Title   string `json:"title" validate:"required,max=500"`
	Content string `json:"content" validate:"required"`
}

type UploadDocumentResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"` // "ingesting" until embeddings land
}

type DocumentItem struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListDocumentsResponse struct {
	Documents []DocumentItem `json:"documents"`
	Total     int64          `json:"total"`
}

type ShowDocumentResponse struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ChunkCount int        `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type SemanticSearchResult struct {
	ChunkId       uuid.UUID `json:"chunk_id"`
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	Content       string    `json:"content"`
	ChunkIndex    int       `json:"chunk_index"`
	Similarity    float64   `json:"similarity"`
}

type SemanticSearchResponse struct {
	Results []SemanticSearchResult `json:"results"`
}

type IngestDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
}

type SummarizeDocumentResponse struct {
	DocumentId uuid.UUID      `json:"document_id"`
	Summary    string         `json:"summary"`
	Sources    []AnswerSource `json:"sources"`
	ChunksUsed int            `json:"chunks_used"`
}
