package dto

import (
	"time"

	"github.com/google/uuid"
)

type AskRequest struct {
	Query       string      `json:"query" validate:"required"`
	SessionId   *uuid.UUID  `json:"session_id"`
	DocumentIds []uuid.UUID `json:"document_ids"`
	Limit       int         `json:"limit" validate:"omitempty,min=1,max=50"`
	Threshold   float64     `json:"threshold" validate:"omitempty,gte=0,lte=1"`
}

type AnswerSource struct {
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkCount    int       `json:"chunk_count"`
	MaxSimilarity float64   `json:"max_similarity"`
}

type AskResponse struct {
	SessionId  uuid.UUID      `json:"session_id"`
	Answer     string         `json:"answer"`
	Sources    []AnswerSource `json:"sources"`
	ChunksUsed int            `json:"chunks_used"`
	Cached     bool           `json:"cached"`
}

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=500"`
}

type SessionItem struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ListSessionsResponse struct {
	Sessions []SessionItem `json:"sessions"`
}

type MessageItem struct {
	Id         uuid.UUID `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ChunksUsed int       `json:"chunks_used"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionHistoryResponse struct {
	SessionId uuid.UUID     `json:"session_id"`
	Messages  []MessageItem `json:"messages"`
}
