package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ai-docchat-be/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records batch boundaries and derives each vector from the
// text itself, so order mix-ups are detectable.
type fakeProvider struct {
	batchSizes []int
	failAt     int // fail the nth wire call (1-based), 0 = never
	calls      int
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failAt != 0 && f.calls == f.failAt {
		return nil, errors.New("provider quota exceeded")
	}
	f.batchSizes = append(f.batchSizes, len(texts))

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestEmbedBatchPreservesLengthAndOrder(t *testing.T) {
	fake := &fakeProvider{}
	client := NewBatchClient(fake, 64)

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // length i+1
	}

	vectors, err := client.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, v := range vectors {
		assert.Equal(t, float32(len(texts[i])), v[0], "vector %d out of order", i)
	}

	// 150 items at batch size 64: 64 + 64 + 22
	assert.Equal(t, []int{64, 64, 22}, fake.batchSizes)
}

func TestEmbedBatchSizeInvariance(t *testing.T) {
	texts := make([]string, 97)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}

	small, err := NewBatchClient(&fakeProvider{}, 10).EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	large, err := NewBatchClient(&fakeProvider{}, 500).EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, large, small, "results must not depend on internal batch size")
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	client := NewBatchClient(&fakeProvider{}, 64)
	vectors, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedBatchFailureFailsWholeCall(t *testing.T) {
	fake := &fakeProvider{failAt: 2}
	client := NewBatchClient(fake, 10)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "x"
	}

	vectors, err := client.EmbedBatch(context.Background(), texts)
	assert.Nil(t, vectors, "no partial-success output")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrEmbeddingProvider)
}
