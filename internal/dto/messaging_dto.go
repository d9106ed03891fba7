package dto

import "github.com/google/uuid"

// IngestDocumentMessage is the payload queued when a document needs its
// chunks and embeddings (re)built.
type IngestDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
