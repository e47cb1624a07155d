// Package retrieval combines the corpus, embedder, and vector index
// into a single retrieval facade.
//
// Retrieval is strictly best-effort: any failure during construction
// or lookup degrades to "no result" instead of surfacing an error, so
// a broken retrieval stack can never fail a remediation request.
package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/corpus"
	"github.com/fyrsmithlabs/remedyd/internal/embeddings"
	"github.com/fyrsmithlabs/remedyd/internal/index"
)

// Retriever answers similarity queries over the guidance corpus.
//
// The corpus and index are built once at construction and never
// mutated afterwards; the index holds exactly one vector per document
// at the matching position.
type Retriever struct {
	docs     []corpus.Document
	idx      *index.Flat
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// New loads the corpus from dir, embeds it, and builds the index.
//
// New never returns an error: an empty corpus, embedding failure, or
// index build failure leaves the retriever constructed but
// unavailable. The embedder must already be loaded.
func New(ctx context.Context, dir string, embedder embeddings.Embedder, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Retriever{
		embedder: embedder,
		logger:   logger,
	}

	docs := corpus.Load(dir, logger)
	if len(docs) == 0 {
		logger.Warn("retrieval unavailable: corpus is empty", zap.String("dir", dir))
		return r
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		logger.Warn("retrieval unavailable: corpus embedding failed", zap.Error(err))
		return r
	}

	idx, err := index.Build(vectors)
	if err != nil {
		logger.Warn("retrieval unavailable: index build failed", zap.Error(err))
		return r
	}

	r.docs = docs
	r.idx = idx
	logger.Info("retrieval ready",
		zap.Int("documents", len(docs)),
		zap.Int("dimension", idx.Dimension()),
	)
	return r
}

// IsAvailable reports whether the index is built and the corpus is
// non-empty.
func (r *Retriever) IsAvailable() bool {
	return r != nil && r.idx != nil && len(r.docs) > 0
}

// Retrieve returns the text of the document nearest to query. The
// second return value is false when retrieval is unavailable or any
// internal error occurred; retrieval failure never propagates.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (string, bool) {
	if !r.IsAvailable() {
		return "", false
	}
	if topK <= 0 {
		topK = 1
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("retrieval degraded: query embedding failed", zap.Error(err))
		return "", false
	}

	positions, err := r.idx.Search(queryVec, topK)
	if err != nil || len(positions) == 0 {
		r.logger.Warn("retrieval degraded: index search failed", zap.Error(err))
		return "", false
	}

	doc := r.docs[positions[0]]
	r.logger.Debug("retrieved guidance document",
		zap.String("document", doc.ID),
		zap.String("query", query),
	)
	return doc.Text, true
}
