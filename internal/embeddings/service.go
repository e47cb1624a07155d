// Package embeddings provides embedding generation via TEI.
//
// TEI (Text Embeddings Inference) serves a single embedding model over
// HTTP. The service must be loaded explicitly with Load before the
// first embedding call; Load probes the server and records the
// embedding dimension the model produces.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/config"
)

var (
	// ErrNotLoaded indicates an embedding call before Load.
	ErrNotLoaded = errors.New("embedding model not loaded")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts, one
	// vector per input text in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Service is a TEI-backed Embedder.
type Service struct {
	config config.EmbeddingConfig
	client *http.Client
	logger *zap.Logger

	mu        sync.RWMutex
	loaded    bool
	dimension int
}

// NewService creates an embedding service. Call Load before embedding.
func NewService(cfg config.EmbeddingConfig, logger *zap.Logger) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", config.ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config: cfg,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// Load probes the TEI server with a single embedding request and
// records the model's embedding dimension. It is safe to call more
// than once; subsequent calls are no-ops.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	vectors, err := s.post(ctx, "remedyd embedding probe")
	if err != nil {
		return fmt.Errorf("probing embedding server: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("%w: probe returned no vector", ErrEmbeddingFailed)
	}

	s.dimension = len(vectors[0])
	s.loaded = true
	s.logger.Info("embedding model ready",
		zap.String("model", s.config.Model),
		zap.Int("dimension", s.dimension),
	)
	return nil
}

// Dimension returns the embedding dimension, or 0 before Load.
func (s *Service) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// EmbedQuery generates an embedding for a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.post(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.post(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

func (s *Service) requireLoaded() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}

// post sends inputs to the TEI embed endpoint and decodes the vectors.
func (s *Service) post(ctx context.Context, inputs interface{}) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return vectors, nil
}
