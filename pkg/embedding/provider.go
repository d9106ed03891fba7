package embedding

import (
	"context"
	"math"
)

// Dimensions is the vector width of the supported embedding models.
// text-embedding-004 (Gemini) and nomic-embed-text (Ollama) both emit
// 768-dimension vectors, and the chunks.embedding column is declared to
// match; pgvector rejects inserts of any other width.
const Dimensions = 768

// Provider generates fixed-dimension embedding vectors for text.
//
// EmbedBatch is order-preserving and one-to-one: the output always has the
// same length as the input, in input order. A provider-side failure fails
// the whole call; there are no partial-success semantics. Embeddings are not
// guaranteed stable across model versions, so re-embedding a corpus is a
// full rebuild, never an incremental patch.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// normalizeVector scales vec to unit length. Cosine distance in pgvector
// requires normalized vectors for accurate similarity scores.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
