//go:build ignore

// Quick check that the configured embedding provider produces vectors whose
// cosine similarity matches intuition. Run with: go run scripts/compare_embeddings.go
package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/pkg/embedding"
)

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func main() {
	cfg := config.Load()
	fmt.Printf("Embedding provider: %s\n", cfg.Ai.EmbeddingProvider)

	var provider embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	default:
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	ctx := context.Background()
	pairs := [][2]string{
		{"How do goroutines communicate?", "Channels let goroutines exchange values."},
		{"How do goroutines communicate?", "The invoice is due at the end of the month."},
	}

	for _, pair := range pairs {
		vecs, err := provider.EmbedBatch(ctx, []string{pair[0], pair[1]})
		if err != nil {
			log.Fatalf("embedding failed: %v", err)
		}
		fmt.Printf("%.4f  %q vs %q\n", cosineSimilarity(vecs[0], vecs[1]), pair[0], pair[1])
	}
}
