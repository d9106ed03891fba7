package events

import "time"

// Event is the contract for everything that crosses the event bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_INGESTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes published by the document pipeline.
const (
	TypeDocumentUploaded = "DOCUMENT_UPLOADED"
	TypeDocumentIngested = "DOCUMENT_INGESTED"
	TypeDocumentFailed   = "DOCUMENT_INGEST_FAILED"
	TypeDocumentDeleted  = "DOCUMENT_DELETED"
)
