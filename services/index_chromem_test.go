package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/docqa/models"
)

func newTestIndex(t *testing.T, chunks []models.Chunk, vectors [][]float32) VectorIndex {
	t.Helper()
	index, err := NewChromemProvider().NewIndex(context.Background())
	require.NoError(t, err)
	require.NoError(t, index.Add(context.Background(), chunks, vectors))
	return index
}

func TestChromemIndex_RanksBySimilarity(t *testing.T) {
	chunks := []models.Chunk{
		{Index: 0, Content: "north", Source: "a.pdf", Page: 1},
		{Index: 1, Content: "east", Source: "a.pdf", Page: 1},
		{Index: 2, Content: "north-east", Source: "a.pdf", Page: 2},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	index := newTestIndex(t, chunks, vectors)

	got, err := index.Search(context.Background(), []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "north", got[0].Content)
	assert.Equal(t, "north-east", got[1].Content)
	assert.Equal(t, 2, got[1].Page)
	assert.Equal(t, "a.pdf", got[1].Source)
}

func TestChromemIndex_TiesKeepDocumentOrder(t *testing.T) {
	chunks := make([]models.Chunk, 6)
	vectors := make([][]float32, 6)
	for i := range chunks {
		chunks[i] = models.Chunk{Index: i, Content: "same", Source: "tie.pdf", Page: 1}
		vectors[i] = []float32{1, 1, 1}
	}
	index := newTestIndex(t, chunks, vectors)

	for run := 0; run < 5; run++ {
		got, err := index.Search(context.Background(), []float32{1, 1, 1}, 4)
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i, c := range got {
			assert.Equal(t, i, c.Index)
		}
	}
}

func TestChromemIndex_KLargerThanIndex(t *testing.T) {
	index := newTestIndex(t,
		[]models.Chunk{{Index: 0, Content: "only"}},
		[][]float32{{1, 0}},
	)

	got, err := index.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, index.Count())
}

func TestChromemIndex_MismatchedVectors(t *testing.T) {
	index, err := NewChromemProvider().NewIndex(context.Background())
	require.NoError(t, err)

	err = index.Add(context.Background(), []models.Chunk{{Content: "a"}}, nil)
	assert.Error(t, err)
}

func TestChromemIndex_IndexesAreIndependent(t *testing.T) {
	provider := NewChromemProvider()
	ctx := context.Background()

	a, err := provider.NewIndex(ctx)
	require.NoError(t, err)
	b, err := provider.NewIndex(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Add(ctx, []models.Chunk{{Index: 0, Content: "in a"}}, [][]float32{{1, 0}}))
	assert.Equal(t, 1, a.Count())
	assert.Zero(t, b.Count())

	got, err := b.Search(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, a.Drop(ctx))
	assert.Equal(t, 0, b.Count())
}
