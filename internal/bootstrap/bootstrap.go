// Package bootstrap wires configuration, infrastructure and use cases into
// runnable applications. The API keeps serving in degraded mode when optional
// pieces (vocabulary, index, cache, events) are unavailable.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrovoice/agri-assistant/internal/config"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
	"github.com/agrovoice/agri-assistant/internal/core/usecase"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/cache"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/chunking"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/extractor"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/keywords"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/llm/ollama"
	natsqueue "github.com/agrovoice/agri-assistant/internal/infrastructure/queue/nats"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/resilience"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/vector/local"
	"github.com/agrovoice/agri-assistant/internal/infrastructure/vocabulary"
	"github.com/agrovoice/agri-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	QueryService ports.QueryService
	IndexBuilder ports.IndexBuilder
	Library      *local.Library
	Queue        *natsqueue.Queue
	Metrics      *metrics.Metrics

	closeFn func()
}

// NewAPI assembles the query-serving application.
func NewAPI(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	generator := ollama.NewGenerator(client)
	embedder := ollama.NewEmbedder(client)

	library := local.NewLibrary(cfg.IndexPath, cfg.ChunkStorePath, logger)
	if err := library.Reload(ctx); err != nil {
		// Queries still work, every agriculture question just gets the
		// no-context reply until an index is built.
		logger.Warn("knowledge base unavailable at startup", "error", err)
	}

	m := metrics.New("api")
	kw := keywords.LoadFromFile(cfg.KeywordsPath, logger)
	corrector := vocabulary.NewFromFile(cfg.VocabularyPath, logger)
	classifier := usecase.NewKeywordClassifier(
		kw.Products,
		kw.Agriculture,
		kw.NonAgriculture,
		generator,
		time.Duration(cfg.ClassifyTimeoutSeconds)*time.Second,
		logger,
	)
	classifier.OnModelFallback(m.RecordIntentFallback)
	retriever := usecase.NewVectorRetriever(embedder, library, logger)
	synthesizer := usecase.NewGroundedSynthesizer(generator, cfg.SimilarityThreshold, kw.FocusTerms, cfg.MaxAnswerTokens, logger)

	answerCache, closeCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	queue, err := connectQueue(cfg, executor, logger)
	if err != nil {
		closeCache()
		return nil, err
	}

	app := &App{
		Config:       cfg,
		Logger:       logger,
		QueryService: usecase.NewProcessQueryUseCase(corrector, classifier, retriever, synthesizer, answerCache, cfg.TopK, logger),
		Library:      library,
		Queue:        queue,
		Metrics:      m,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			closeCache()
		},
	}
	app.Metrics.SetIndexChunks(library.Info().Chunks)
	return app, nil
}

// NewIndexer assembles the one-shot ingestion application.
func NewIndexer(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(client)

	kw := keywords.LoadFromFile(cfg.KeywordsPath, logger)
	library := local.NewLibrary(cfg.IndexPath, cfg.ChunkStorePath, logger)
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, kw.FocusTerms)

	queue, err := connectQueue(cfg, executor, logger)
	if err != nil {
		return nil, err
	}

	var events ports.IndexEvents
	if queue != nil {
		events = queue
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		IndexBuilder: usecase.NewBuildIndexUseCase(extractor.New(), splitter, embedder, library, events, logger),
		Library:      library,
		Queue:        queue,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
		},
	}, nil
}

func buildCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.AnswerCache, func(), error) {
	noop := func() {}
	switch cfg.CacheBackend {
	case "off":
		return nil, noop, nil
	case "postgres":
		db, err := cache.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		pg := cache.NewPostgresCache(db, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("ensure cache schema: %w", err)
		}
		return pg, func() { _ = db.Close() }, nil
	default:
		return cache.NewMemoryCache(), noop, nil
	}
}

// connectQueue returns nil when no NATS url is configured; index events are
// then simply not published or consumed.
func connectQueue(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (*natsqueue.Queue, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init index event queue: %w", err)
	}
	return queue, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
