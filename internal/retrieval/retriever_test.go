package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockEmbedder embeds texts by length so nearest-neighbor behavior is
// predictable without a real model.
type mockEmbedder struct {
	failDocuments bool
	failQuery     bool
	queryVec      []float32
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if m.failQuery {
		return nil, errors.New("embedder down")
	}
	if m.queryVec != nil {
		return m.queryVec, nil
	}
	return []float32{float32(len(text)), 0}, nil
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if m.failDocuments {
		return nil, errors.New("embedder down")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 0}
	}
	return vectors, nil
}

func writeCorpus(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestRetrieveNearestDocument(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"short.txt": "abc",        // length 3
		"long.txt":  "abcdefghij", // length 10
	})

	r := New(context.Background(), dir, &mockEmbedder{}, zap.NewNop())
	require.True(t, r.IsAvailable())

	// Query vector closest to the longer document.
	text, ok := r.Retrieve(context.Background(), "123456789", 1)

	require.True(t, ok)
	assert.Equal(t, "abcdefghij", text)
}

func TestEmptyCorpusUnavailable(t *testing.T) {
	r := New(context.Background(), t.TempDir(), &mockEmbedder{}, zap.NewNop())

	assert.False(t, r.IsAvailable())

	text, ok := r.Retrieve(context.Background(), "anything", 1)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestEmbeddingFailureDegrades(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"doc.txt": "guidance"})

	r := New(context.Background(), dir, &mockEmbedder{failDocuments: true}, zap.NewNop())

	assert.False(t, r.IsAvailable())
}

func TestQueryEmbeddingFailureDegrades(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"doc.txt": "guidance"})
	embedder := &mockEmbedder{}

	r := New(context.Background(), dir, embedder, zap.NewNop())
	require.True(t, r.IsAvailable())

	embedder.failQuery = true
	text, ok := r.Retrieve(context.Background(), "query", 1)

	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestQueryDimensionMismatchDegrades(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"doc.txt": "guidance"})
	embedder := &mockEmbedder{queryVec: []float32{1, 2, 3}}

	r := New(context.Background(), dir, embedder, zap.NewNop())
	require.True(t, r.IsAvailable())

	_, ok := r.Retrieve(context.Background(), "query", 1)

	assert.False(t, ok)
}

func TestNilRetrieverUnavailable(t *testing.T) {
	var r *Retriever

	assert.False(t, r.IsAvailable())

	_, ok := r.Retrieve(context.Background(), "query", 1)
	assert.False(t, ok)
}
