// Package orchestrator sequences the remediation pipeline per
// request: validate, optionally retrieve guidance, build the prompt,
// generate, postprocess, log metrics, respond.
//
// Degrade-vs-fail policy: retrieval problems fall back to static CWE
// guidance exactly once per request with no retry and never abort the
// pipeline; generation and postprocessing errors fail the request.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/generation"
	"github.com/fyrsmithlabs/remedyd/internal/metrics"
	"github.com/fyrsmithlabs/remedyd/internal/postprocess"
	"github.com/fyrsmithlabs/remedyd/internal/prompt"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/orchestrator"

// Retriever is the retrieval surface the orchestrator needs.
type Retriever interface {
	IsAvailable() bool
	Retrieve(ctx context.Context, query string, topK int) (string, bool)
}

// RetrieverFactory constructs the retriever on first need. It runs at
// most once per Service even under concurrent first use.
type RetrieverFactory func(ctx context.Context) Retriever

// Service owns the pipeline's collaborators explicitly; there are no
// hidden process-global singletons, so tests substitute fakes freely.
type Service struct {
	backend          generation.Backend
	retrieverFactory RetrieverFactory
	post             *postprocess.Postprocessor
	store            *metrics.Store
	logger           *zap.Logger
	maxNewTokens     int

	retrieverOnce sync.Once
	retrieverMu   sync.RWMutex
	retriever     Retriever

	tracer         trace.Tracer
	meter          metric.Meter
	requestCounter metric.Int64Counter
	failureCounter metric.Int64Counter
}

// NewService creates the orchestrator.
func NewService(
	backend generation.Backend,
	retrieverFactory RetrieverFactory,
	post *postprocess.Postprocessor,
	store *metrics.Store,
	maxNewTokens int,
	logger *zap.Logger,
) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("generation backend is required")
	}
	if post == nil {
		post = postprocess.New(nil)
	}
	if store == nil {
		return nil, fmt.Errorf("metrics store is required")
	}
	if maxNewTokens <= 0 {
		maxNewTokens = 512
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		backend:          backend,
		retrieverFactory: retrieverFactory,
		post:             post,
		store:            store,
		logger:           logger,
		maxNewTokens:     maxNewTokens,
		tracer:           otel.Tracer(instrumentationName),
		meter:            otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.requestCounter, err = s.meter.Int64Counter(
		"remedyd.fix.requests_total",
		metric.WithDescription("Total number of fix requests processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		s.logger.Warn("failed to create request counter", zap.Error(err))
	}

	s.failureCounter, err = s.meter.Int64Counter(
		"remedyd.fix.failures_total",
		metric.WithDescription("Total number of failed fix requests"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		s.logger.Warn("failed to create failure counter", zap.Error(err))
	}
}

// ProcessFix runs the full pipeline for one request. It returns a
// complete FixResponse or an error; there is no partial result.
func (s *Service) ProcessFix(ctx context.Context, req *FixRequest) (*FixResponse, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.ProcessFix",
		trace.WithAttributes(
			attribute.String("cwe", req.CWE),
			attribute.String("language", req.Language),
			attribute.Bool("use_rag", req.UseRAG),
		))
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	requestID := uuid.NewString()
	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("language", req.Language),
		zap.String("cwe", req.CWE),
	)
	logger.Info("processing fix request", zap.Bool("use_rag", req.UseRAG))

	if s.requestCounter != nil {
		s.requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("cwe", req.CWE)))
	}

	start := time.Now()

	// Retrieval is best-effort: any degradation falls back to the
	// static CWE guidance without aborting the request.
	guidance, ragUsed := s.retrieveContext(ctx, req, logger)
	if guidance == "" {
		guidance = prompt.CWEContext(req.CWE)
	}

	remediationPrompt := prompt.BuildRemediationPrompt(req.Language, req.CWE, req.Code, guidance)

	rawOutput, usage, err := s.backend.GenerateFix(ctx, remediationPrompt, s.maxNewTokens)
	if err != nil {
		s.recordFailure(ctx, span, logger, "generation failed", err)
		return nil, fmt.Errorf("generating fix: %w", err)
	}

	result, err := s.post.Process(req.Code, req.Language, req.CWE, rawOutput)
	if err != nil {
		s.recordFailure(ctx, span, logger, "postprocessing failed", err)
		return nil, fmt.Errorf("postprocessing fix: %w", err)
	}

	latencyMS := time.Since(start).Milliseconds()

	// Failed requests never reach this append; the log holds only
	// completed requests. An append failure degrades to a warning
	// rather than failing an otherwise complete response.
	if err := s.store.LogRequest(metrics.Record{
		Timestamp:    time.Now(),
		Language:     req.Language,
		CWE:          req.CWE,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		LatencyMS:    latencyMS,
		ModelUsed:    s.backend.ModelName(),
		RAGEnabled:   ragUsed,
	}); err != nil {
		logger.Warn("failed to log request metrics", zap.Error(err))
	}

	logger.Info("fix request completed",
		zap.Int64("latency_ms", latencyMS),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Bool("rag_used", ragUsed),
	)

	return &FixResponse{
		FixedCode:   result.FixedCode,
		Diff:        result.Diff,
		Explanation: result.Explanation,
		ModelUsed:   s.backend.ModelName(),
		TokenUsage: TokenUsage{
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
		},
		LatencyMS: latencyMS,
	}, nil
}

// retrieveContext returns retrieved guidance and whether retrieval
// produced a result. The retriever is constructed lazily on the first
// retrieval-enabled request, at most once per process.
func (s *Service) retrieveContext(ctx context.Context, req *FixRequest, logger *zap.Logger) (string, bool) {
	if !req.UseRAG || s.retrieverFactory == nil {
		return "", false
	}

	s.retrieverOnce.Do(func() {
		r := s.retrieverFactory(ctx)
		s.retrieverMu.Lock()
		s.retriever = r
		s.retrieverMu.Unlock()
	})

	s.retrieverMu.RLock()
	retriever := s.retriever
	s.retrieverMu.RUnlock()

	if retriever == nil || !retriever.IsAvailable() {
		logger.Debug("retrieval unavailable, using static guidance")
		return "", false
	}

	query := fmt.Sprintf("%s %s security vulnerability", req.CWE, req.Language)
	text, ok := retriever.Retrieve(ctx, query, 1)
	if !ok || text == "" {
		logger.Debug("retrieval returned no result, using static guidance")
		return "", false
	}

	logger.Debug("retrieved guidance context")
	return text, true
}

func (s *Service) recordFailure(ctx context.Context, span trace.Span, logger *zap.Logger, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logger.Error(msg, zap.Error(err))
	if s.failureCounter != nil {
		s.failureCounter.Add(ctx, 1)
	}
}

// Stats returns aggregate metrics, or nil when nothing has been
// logged yet.
func (s *Service) Stats(ctx context.Context) (*metrics.Summary, error) {
	_, span := s.tracer.Start(ctx, "orchestrator.Stats")
	defer span.End()

	return s.store.SummaryStats()
}

// RetrievalAvailable reports whether the retriever has been
// constructed and is usable. It never triggers construction.
func (s *Service) RetrievalAvailable() bool {
	s.retrieverMu.RLock()
	retriever := s.retriever
	s.retrieverMu.RUnlock()
	return retriever != nil && retriever.IsAvailable()
}

// ModelName exposes the backend's short model identifier.
func (s *Service) ModelName() string {
	return s.backend.ModelName()
}
