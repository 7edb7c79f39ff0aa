// Kortexd answers natural-language questions about GitHub repositories.
//
// The daemon aggregates repository data from the GitHub API, indexes it
// into an embedded vector store, and serves question answering, project
// summaries, and GitHub search over HTTP.
//
// Configuration is loaded from an optional YAML file and KORTEX_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	kortexd
//
//	# Start with a config file
//	kortexd -config /etc/kortex/config.yaml
//
//	# Configure via environment
//	KORTEX_SERVER_PORT=9090 KORTEX_GITHUB_TOKEN=ghp_... kortexd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kortex/internal/config"
	"github.com/fyrsmithlabs/kortex/internal/embeddings"
	"github.com/fyrsmithlabs/kortex/internal/engine"
	"github.com/fyrsmithlabs/kortex/internal/github"
	"github.com/fyrsmithlabs/kortex/internal/httpapi"
	"github.com/fyrsmithlabs/kortex/internal/logging"
	"github.com/fyrsmithlabs/kortex/internal/vectorstore"
)

const shutdownTimeout = 10 * time.Second

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  kortexd            Start the kortexd daemon\n")
			fmt.Fprintf(os.Stderr, "  kortexd version    Show version information\n")
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
	fmt.Printf("kortexd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the kortexd server and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting kortexd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("github_token_configured", cfg.GitHub.Token.IsSet()),
		zap.Bool("generation_configured", cfg.AI.APIKey.IsSet()))

	aggregator, err := github.NewAggregator(github.AggregatorConfig{
		Token:          cfg.GitHub.Token,
		Timeout:        cfg.GitHub.Timeout,
		PlaceholderTTL: cfg.GitHub.PlaceholderTTL,
	}, logger.Named("aggregator"))
	if err != nil {
		return fmt.Errorf("creating aggregator: %w", err)
	}

	search, err := github.NewSearchService(github.SearchConfig{
		Token:   cfg.GitHub.Token,
		Timeout: cfg.GitHub.Timeout,
		Window:  cfg.GitHub.SearchWindow,
		Limit:   cfg.GitHub.SearchLimit,
	}, logger.Named("search"))
	if err != nil {
		return fmt.Errorf("creating search service: %w", err)
	}

	// The vector store is optional infrastructure: when the embedding
	// backend cannot be set up, questions degrade to direct answers.
	var store vectorstore.Store
	embedder, err := embeddings.NewService(cfg.Embeddings)
	if err != nil {
		logger.Warn("embedding service unavailable, retrieval disabled", zap.Error(err))
	} else {
		chromem, err := vectorstore.NewChromemStore(vectorstore.Config{
			Path:     cfg.VectorStore.Path,
			Compress: cfg.VectorStore.Compress,
		}, embedder, logger.Named("vectorstore"))
		if err != nil {
			logger.Warn("vector store unavailable, retrieval disabled", zap.Error(err))
		} else {
			store = chromem
		}
	}

	var generator engine.Generator
	if gen, err := engine.NewLLMGenerator(cfg.AI); err != nil {
		logger.Warn("generation backend unavailable, using templated answers", zap.Error(err))
	} else {
		generator = gen
	}

	index := engine.NewIndexManager(store, logger.Named("index"))
	eng := engine.New(aggregator, index, generator, cfg.AI.MaxChars, logger.Named("engine"))

	srv, err := httpapi.NewServer(aggregator, eng, search, logger.Named("http"), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
