package embedding

import (
	"context"
	"fmt"

	"ai-docchat-be/pkg/apperr"
)

// DefaultBatchSize is the largest group of texts sent to the provider in a
// single request, sized to stay under provider payload limits.
const DefaultBatchSize = 64

// BatchClient wraps a Provider and enforces the request-size limit: inputs
// larger than batchSize are split into sub-batches and the results are
// concatenated back into one ordered output equal in length to the input.
type BatchClient struct {
	provider  Provider
	batchSize int
}

func NewBatchClient(provider Provider, batchSize int) *BatchClient {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchClient{
		provider:  provider,
		batchSize: batchSize,
	}
}

func (c *BatchClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingProvider, err)
	}
	return vec, nil
}

// EmbedBatch embeds texts in groups of at most batchSize. Any sub-batch
// failure fails the entire call: callers retry or abort the whole ingestion.
func (c *BatchClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.provider.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", apperr.ErrEmbeddingProvider, start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d: got %d vectors for %d texts", apperr.ErrEmbeddingProvider, start, end-1, len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
