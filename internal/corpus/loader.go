// Package corpus loads the guidance document corpus for retrieval.
//
// The corpus is a directory of plain-text files, one guidance document
// per file. It is read once at first retrieval use and never mutated
// afterwards; document order is load order (lexical filename order).
package corpus

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Document is a single guidance document.
type Document struct {
	// ID is derived from the source filename (extension stripped).
	ID string

	// Text is the full document content.
	Text string
}

// Load scans dir for *.txt documents and returns them in lexical
// filename order. Unreadable or empty files are skipped with a
// warning; a missing or unreadable directory yields an empty corpus.
// Load never fails: zero documents is a valid, degraded outcome.
func Load(dir string, logger *zap.Logger) []Document {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("corpus directory not readable, retrieval will be unavailable",
			zap.String("dir", dir),
			zap.Error(err),
		)
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable corpus document",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}

		text := strings.TrimSpace(string(content))
		if text == "" {
			logger.Warn("skipping empty corpus document", zap.String("file", path))
			continue
		}

		docs = append(docs, Document{
			ID:   strings.TrimSuffix(name, filepath.Ext(name)),
			Text: text,
		})
	}

	logger.Info("corpus loaded",
		zap.String("dir", dir),
		zap.Int("documents", len(docs)),
	)

	return docs
}
