package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/config"
)

// newTEIServer returns a fake TEI server that embeds every input as a
// fixed-dimension vector.
func newTEIServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)

		var req struct {
			Inputs interface{} `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		count := 1
		if texts, ok := req.Inputs.([]interface{}); ok {
			count = len(texts)
		}

		vectors := make([][]float32, count)
		for i := range vectors {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			vectors[i] = vec
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
}

func newLoadedService(t *testing.T, baseURL string) *Service {
	t.Helper()
	svc, err := NewService(config.EmbeddingConfig{BaseURL: baseURL, Model: "test-model"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestLoadRecordsDimension(t *testing.T) {
	server := newTEIServer(t, 384)
	defer server.Close()

	svc := newLoadedService(t, server.URL)

	assert.Equal(t, 384, svc.Dimension())
}

func TestEmbedBeforeLoad(t *testing.T) {
	svc, err := NewService(config.EmbeddingConfig{BaseURL: "http://localhost:1"}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = svc.EmbedDocuments(context.Background(), []string{"doc"})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestEmbedQuery(t *testing.T) {
	server := newTEIServer(t, 4)
	defer server.Close()

	svc := newLoadedService(t, server.URL)

	vec, err := svc.EmbedQuery(context.Background(), "sql injection")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbedDocuments(t *testing.T) {
	server := newTEIServer(t, 4)
	defer server.Close()

	svc := newLoadedService(t, server.URL)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, vec := range vectors {
		assert.Len(t, vec, 4)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	server := newTEIServer(t, 4)
	defer server.Close()

	svc := newLoadedService(t, server.URL)

	_, err := svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, err := NewService(config.EmbeddingConfig{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	err = svc.Load(context.Background())
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestLoadIsIdempotent(t *testing.T) {
	server := newTEIServer(t, 8)
	defer server.Close()

	svc := newLoadedService(t, server.URL)
	require.NoError(t, svc.Load(context.Background()))

	assert.Equal(t, 8, svc.Dimension())
}
