package unitofwork

import (
	"context"

	"ai-docchat-be/internal/repository/contract"
)

// UnitOfWork scopes repository access to one logical operation, optionally
// inside a transaction. Ingestion relies on this: a document's chunk set is
// replaced atomically, so readers never observe a partially written set.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChunkRepository() contract.ChunkRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
}
