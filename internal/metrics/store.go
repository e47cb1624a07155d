// Package metrics persists per-request usage records.
//
// Records are append-only CSV rows: they are never updated or
// deleted, and an existing log file is never truncated. Appends are
// mutex-guarded so each row is written atomically even under
// concurrent requests; ordering across requests is not guaranteed.
package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCorruptStore indicates the metrics file could not be parsed.
var ErrCorruptStore = errors.New("corrupt metrics store")

// header is the fixed column order of the metrics log.
var header = []string{
	"timestamp",
	"language",
	"cwe",
	"input_tokens",
	"output_tokens",
	"total_tokens",
	"latency_ms",
	"model_used",
	"rag_enabled",
}

// Record is one completed request's metrics. total_tokens is derived
// at write time as input + output.
type Record struct {
	Timestamp    time.Time
	Language     string
	CWE          string
	InputTokens  int
	OutputTokens int
	LatencyMS    int64
	ModelUsed    string

	// RAGEnabled is true only if retrieval was attempted and
	// returned a result.
	RAGEnabled bool
}

// Summary aggregates the whole log. Averages are rounded to 2
// decimal places.
type Summary struct {
	TotalRequests   int     `json:"total_requests"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	AvgInputTokens  float64 `json:"avg_input_tokens"`
	AvgOutputTokens float64 `json:"avg_output_tokens"`
}

// Store is a CSV-backed metrics log.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore opens the metrics log at path, creating it with the fixed
// header if it does not exist. An existing file is left untouched.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("metrics file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{path: path, logger: logger}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return nil, fmt.Errorf("creating metrics file: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing metrics header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flushing metrics header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("closing metrics file: %w", err)
		}
		logger.Info("created metrics log", zap.String("file", path))
	} else if err != nil {
		return nil, fmt.Errorf("checking metrics file: %w", err)
	}

	return s, nil
}

// LogRequest appends one record.
func (s *Store) LogRequest(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening metrics file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		rec.Timestamp.Format(time.RFC3339),
		rec.Language,
		rec.CWE,
		strconv.Itoa(rec.InputTokens),
		strconv.Itoa(rec.OutputTokens),
		strconv.Itoa(rec.InputTokens + rec.OutputTokens),
		strconv.FormatInt(rec.LatencyMS, 10),
		rec.ModelUsed,
		strconv.FormatBool(rec.RAGEnabled),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing metrics row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing metrics row: %w", err)
	}

	s.logger.Debug("request logged",
		zap.String("language", rec.Language),
		zap.String("cwe", rec.CWE),
		zap.Int("input_tokens", rec.InputTokens),
		zap.Int("output_tokens", rec.OutputTokens),
		zap.Int64("latency_ms", rec.LatencyMS),
	)
	return nil
}

// SummaryStats aggregates the log. It returns nil when no rows have
// been logged.
func (s *Store) SummaryStats() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening metrics file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if len(rows) <= 1 {
		// Header only.
		return nil, nil
	}

	var latencySum, inputSum, outputSum float64
	data := rows[1:]
	for i, row := range data {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrCorruptStore, i+1, len(row))
		}
		latency, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad latency in row %d: %v", ErrCorruptStore, i+1, err)
		}
		input, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad input_tokens in row %d: %v", ErrCorruptStore, i+1, err)
		}
		output, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad output_tokens in row %d: %v", ErrCorruptStore, i+1, err)
		}
		latencySum += latency
		inputSum += input
		outputSum += output
	}

	n := float64(len(data))
	return &Summary{
		TotalRequests:   len(data),
		AvgLatencyMS:    round2(latencySum / n),
		AvgInputTokens:  round2(inputSum / n),
		AvgOutputTokens: round2(outputSum / n),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
