// Remedyd is a code remediation daemon.
//
// It accepts a vulnerable code fragment plus a CWE classification and
// returns a remediated fragment, a unified diff, an explanation, and
// usage metrics. Remediation guidance is optionally retrieved from a
// local corpus via semantic search; generation runs against an
// OpenAI-compatible inference server.
//
// Usage:
//
//	# Start with defaults
//	remedyd
//
//	# Configure via file and environment
//	remedyd -config /etc/remedyd/config.yaml
//	REMEDYD_SERVER_PORT=9000 REMEDYD_MODEL_BASE_URL=http://inference:8080/v1 remedyd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/embeddings"
	"github.com/fyrsmithlabs/remedyd/internal/generation"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/metrics"
	"github.com/fyrsmithlabs/remedyd/internal/orchestrator"
	"github.com/fyrsmithlabs/remedyd/internal/postprocess"
	"github.com/fyrsmithlabs/remedyd/internal/retrieval"
	"github.com/fyrsmithlabs/remedyd/internal/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  remedyd            Start the remediation daemon\n")
			fmt.Fprintf(os.Stderr, "  remedyd version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("remedyd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires all dependencies and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting remedyd",
		zap.String("version", version),
		zap.String("model", cfg.Model.Model),
	)

	// The generation backend is the one dependency the daemon cannot
	// serve without: a load failure aborts startup.
	backend, err := generation.NewOpenAIBackend(cfg.Model, logger)
	if err != nil {
		return fmt.Errorf("creating generation backend: %w", err)
	}
	if err := backend.Load(ctx); err != nil {
		return fmt.Errorf("loading generation backend: %w", err)
	}

	store, err := metrics.NewStore(cfg.Metrics.File, logger)
	if err != nil {
		return fmt.Errorf("opening metrics store: %w", err)
	}

	// Retrieval is optional: the factory runs on the first
	// retrieval-enabled request, and any failure inside it degrades
	// to static CWE guidance instead of aborting.
	retrieverFactory := func(ctx context.Context) orchestrator.Retriever {
		embedder, err := embeddings.NewService(cfg.Embedding, logger)
		if err != nil {
			logger.Warn("retrieval unavailable: embedding service config invalid", zap.Error(err))
			return nil
		}
		if err := embedder.Load(ctx); err != nil {
			logger.Warn("retrieval unavailable: embedding model load failed", zap.Error(err))
			return nil
		}
		return retrieval.New(ctx, cfg.Corpus.Dir, embedder, logger)
	}

	orch, err := orchestrator.NewService(
		backend,
		retrieverFactory,
		postprocess.New(nil),
		store,
		cfg.Model.MaxNewTokens,
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	srv, err := server.NewServer(orch, logger, cfg.Server)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("remedyd ready to accept requests")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
