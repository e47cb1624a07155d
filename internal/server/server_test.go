package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/generation"
	"github.com/fyrsmithlabs/remedyd/internal/metrics"
	"github.com/fyrsmithlabs/remedyd/internal/orchestrator"
	"github.com/fyrsmithlabs/remedyd/internal/postprocess"
)

// stubBackend implements generation.Backend for handler tests.
type stubBackend struct {
	output string
	err    error
}

func (b *stubBackend) Load(ctx context.Context) error { return nil }

func (b *stubBackend) GenerateFix(ctx context.Context, prompt string, maxNewTokens int) (string, generation.TokenUsage, error) {
	if b.err != nil {
		return "", generation.TokenUsage{}, b.err
	}
	return b.output, generation.TokenUsage{InputTokens: 10, OutputTokens: 5}, nil
}

func (b *stubBackend) ModelName() string { return "stub-model" }

func newTestServer(t *testing.T, backend generation.Backend) *Server {
	t.Helper()

	store, err := metrics.NewStore(filepath.Join(t.TempDir(), "metrics.csv"), zap.NewNop())
	require.NoError(t, err)

	orch, err := orchestrator.NewService(backend, nil, postprocess.New(nil), store, 512, zap.NewNop())
	require.NoError(t, err)

	srv, err := NewServer(orch, zap.NewNop(), config.ServerConfig{Host: "localhost", Port: 8000})
	require.NoError(t, err)
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubBackend{output: "fixed()"})

	rec := doRequest(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHandleRoot(t *testing.T) {
	srv := newTestServer(t, &stubBackend{output: "fixed()"})

	rec := doRequest(srv, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp RootResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "remedyd", resp.Service)
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, "stub-model", resp.Model)
	assert.False(t, resp.RAGAvailable)
}

func TestHandleFix(t *testing.T) {
	srv := newTestServer(t, &stubBackend{
		output: "```python\nquery = 'SELECT * FROM users WHERE id = %s'\n```",
	})

	body := `{"language":"python","cwe":"CWE-89","code":"query = 'SELECT * FROM users WHERE id = ' + uid","use_rag":false}`
	rec := doRequest(srv, http.MethodPost, "/api/v1/fix", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp orchestrator.FixResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "query = 'SELECT * FROM users WHERE id = %s'", resp.FixedCode)
	assert.Equal(t, "stub-model", resp.ModelUsed)
	assert.Equal(t, 10, resp.TokenUsage.InputTokens)
	assert.Equal(t, 5, resp.TokenUsage.OutputTokens)
	assert.NotEmpty(t, resp.Diff)
	assert.NotEmpty(t, resp.Explanation)
}

func TestHandleFixValidationError(t *testing.T) {
	srv := newTestServer(t, &stubBackend{output: "fixed()"})

	body := `{"language":"","cwe":"CWE-89","code":"x"}`
	rec := doRequest(srv, http.MethodPost, "/api/v1/fix", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFixMalformedBody(t *testing.T) {
	srv := newTestServer(t, &stubBackend{output: "fixed()"})

	rec := doRequest(srv, http.MethodPost, "/api/v1/fix", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFixGenerationFailure(t *testing.T) {
	srv := newTestServer(t, &stubBackend{err: generation.ErrGenerationFailed})

	body := `{"language":"python","cwe":"CWE-89","code":"x","use_rag":false}`
	rec := doRequest(srv, http.MethodPost, "/api/v1/fix", body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleStatsEmpty(t *testing.T) {
	srv := newTestServer(t, &stubBackend{output: "fixed()"})

	rec := doRequest(srv, http.MethodGet, "/api/v1/stats", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestHandleStatsAfterRequests(t *testing.T) {
	srv := newTestServer(t, &stubBackend{output: "fixed()"})

	body := `{"language":"python","cwe":"CWE-89","code":"bad()","use_rag":false}`
	require.Equal(t, http.StatusOK, doRequest(srv, http.MethodPost, "/api/v1/fix", body).Code)

	rec := doRequest(srv, http.MethodGet, "/api/v1/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var summary metrics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalRequests)
	assert.InDelta(t, 10, summary.AvgInputTokens, 0.001)
	assert.InDelta(t, 5, summary.AvgOutputTokens, 0.001)
}
