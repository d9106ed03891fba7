package apperr

import "errors"

// Sentinel errors for the retrieval-and-answer pipeline. Callers classify
// failures with errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrInvalidInput covers malformed queries and empty document bodies.
	// Rejected before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput is the specific invalid-input case of a blank document body.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingProvider covers transport, quota and model failures from
	// the embedding backend. The affected batch is failed as a whole.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrRetrievalStore covers similarity-search and chunk-store failures.
	// Never silently reported as an empty result set.
	ErrRetrievalStore = errors.New("search failed")

	// ErrCompletionProvider covers completion-model failures.
	ErrCompletionProvider = errors.New("could not generate answer")
)

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrEmptyInput)
}
