package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestChain(t *testing.T, generator Generator, topK int, pages ...string) *RAGChain {
	t.Helper()
	embedder := &bagOfWordsEmbedder{}
	builder := NewIndexBuilder(embedder, NewChromemProvider(), 120, 20, 4)
	index, err := builder.BuildIndex(context.Background(), textDocument("doc.pdf", pages...))
	require.NoError(t, err)
	return NewChainFactory(embedder, generator, topK).MakeChain(index)
}

func TestRAGChain_ReturnsTopKInRankOrder(t *testing.T) {
	generator := &recordingGenerator{}
	chain := buildTestChain(t, generator, 3, longText(100, "filler"), "The lighthouse keeper feeds seventeen cats every morning.")

	result, err := chain.Ask(context.Background(), "How many cats does the lighthouse keeper feed?")
	require.NoError(t, err)

	assert.Equal(t, "Answer to 'How many cats does the lighthouse keeper feed?'", result.Answer)
	require.Len(t, result.Sources, 3)
	assert.Contains(t, result.Sources[0].Content, "seventeen cats")
	assert.Equal(t, 2, result.Sources[0].Page)

	// The generator saw exactly the chunks that were returned, in the same order.
	require.Len(t, generator.chunks, 1)
	assert.Equal(t, result.Sources, generator.chunks[0])
}

func TestRAGChain_FewerChunksThanK(t *testing.T) {
	chain := buildTestChain(t, &recordingGenerator{}, 4, "A single short page.")

	result, err := chain.Ask(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, result.Sources, 1)
}

func TestRAGChain_CallsAreIndependent(t *testing.T) {
	generator := &recordingGenerator{}
	chain := buildTestChain(t, generator, 2, longText(40, "x"), "Saturn has rings.", "Mars is red.")

	first, err := chain.Ask(context.Background(), "Which planet is red, Mars?")
	require.NoError(t, err)
	second, err := chain.Ask(context.Background(), "Which planet has rings, Saturn?")
	require.NoError(t, err)
	again, err := chain.Ask(context.Background(), "Which planet is red, Mars?")
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first.Sources[0], second.Sources[0])
	assert.Equal(t, []string{
		"Which planet is red, Mars?",
		"Which planet has rings, Saturn?",
		"Which planet is red, Mars?",
	}, generator.questions)
}

func TestRAGChain_ConcurrentAsks(t *testing.T) {
	chain := buildTestChain(t, &recordingGenerator{}, 2, longText(200, "token"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := chain.Ask(context.Background(), "token010")
			assert.NoError(t, err)
			assert.Len(t, result.Sources, 2)
		}()
	}
	wg.Wait()
}

func TestRAGChain_EmptyQuestionPassesThrough(t *testing.T) {
	generator := &recordingGenerator{}
	chain := buildTestChain(t, generator, 2, "some text")

	_, err := chain.Ask(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, generator.questions)
}

func TestRAGChain_BackendFailures(t *testing.T) {
	t.Run("generator", func(t *testing.T) {
		chain := buildTestChain(t, &recordingGenerator{err: errBackend}, 2, "text")
		_, err := chain.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, ErrProcessing)
		assert.ErrorIs(t, err, errBackend)
	})

	t.Run("embedder", func(t *testing.T) {
		chain := buildTestChain(t, &recordingGenerator{}, 2, "text")
		chain.embedder = failingEmbedder{err: errBackend}
		_, err := chain.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, ErrProcessing)
	})
}

func TestRAGChain_CloseDropsIndex(t *testing.T) {
	chain := buildTestChain(t, &recordingGenerator{}, 2, strings.Repeat("word ", 50))
	require.Positive(t, chain.index.Count())

	require.NoError(t, chain.Close(context.Background()))
}

func TestBuildPrompt(t *testing.T) {
	chain := buildTestChain(t, &recordingGenerator{}, 1, "The answer is 42.")
	result, err := chain.Ask(context.Background(), "What is the answer?")
	require.NoError(t, err)

	prompt := buildPrompt("What is the answer?", result.Sources)
	assert.Contains(t, prompt, "[1] (doc.pdf, page 1)")
	assert.Contains(t, prompt, "The answer is 42.")
	assert.True(t, strings.HasSuffix(prompt, "Question: What is the answer?"))
}
