// Package bootstrap wires configuration, infrastructure clients, and use
// cases into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clauseq/clauseq/internal/config"
	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/core/prompt"
	"github.com/clauseq/clauseq/internal/core/usecase"
	"github.com/clauseq/clauseq/internal/infrastructure/download"
	"github.com/clauseq/clauseq/internal/infrastructure/embedding/bgem3"
	"github.com/clauseq/clauseq/internal/infrastructure/llm/openai"
	natsqueue "github.com/clauseq/clauseq/internal/infrastructure/queue/nats"
	"github.com/clauseq/clauseq/internal/infrastructure/repository/postgres"
	"github.com/clauseq/clauseq/internal/infrastructure/resilience"
	"github.com/clauseq/clauseq/internal/infrastructure/storage/localfs"
	"github.com/clauseq/clauseq/internal/infrastructure/vector/pinecone"
	"github.com/clauseq/clauseq/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue           *natsqueue.Queue
	Batch           ports.BatchRunner
	RunService      ports.RunService
	HTTPMetrics     *metrics.HTTPServerMetrics
	PipelineMetrics *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	generatorClient := openai.New(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, executor)
	encoder := bgem3.New(cfg.EmbedServiceURL, executor)
	index := pinecone.New(cfg.PineconeHost, cfg.PineconeAPIKey, executor)

	var reranker ports.Reranker
	if cfg.RerankEnabled {
		reranker = usecase.NewCrossEncoderReranker(encoder)
	}

	prompts := prompt.MustLoad()
	enhancer := usecase.NewEnhancer(generatorClient, prompts, logger)
	retriever := usecase.NewRetriever(encoder, index, reranker, cfg.PineconeNamespace, logger)
	generator := usecase.NewGenerator(generatorClient, prompts, logger)

	pipelineMetrics := metrics.NewPipelineMetrics("clauseq")
	batch := usecase.NewBatchRunner(
		enhancer,
		retriever,
		generator,
		usecase.RetrieveOptions{
			TopKInitial: cfg.RetrievalTopKInitial,
			TopKFinal:   cfg.RetrievalTopKFinal,
			Alpha:       cfg.RetrievalAlpha,
		},
		usecase.BatchOptions{
			MaxWorkers:      cfg.BatchMaxWorkers,
			QuestionTimeout: time.Duration(cfg.QuestionTimeoutSeconds) * time.Second,
		},
		pipelineMetrics,
		logger,
	)

	storage, err := localfs.New(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("init scratch storage: %w", err)
	}
	fetcher := download.New(storage)

	closers := make([]func(), 0, 2)

	var store ports.RunStore
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewRunRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = repo
		closers = append(closers, func() { _ = db.Close() })
	}

	var queue *natsqueue.Queue
	var events ports.EventPublisher
	if cfg.NATSURL != "" {
		queue, err = natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSRunSubject, cfg.NATSEventsSubject, natsqueue.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		events = queue
		closers = append(closers, queue.Close)
	}

	runService := usecase.NewRunUseCase(fetcher, batch, store, events, pipelineMetrics, logger)

	return &App{
		Config:          cfg,
		Logger:          logger,
		Queue:           queue,
		Batch:           batch,
		RunService:      runService,
		HTTPMetrics:     metrics.NewHTTPServerMetrics("clauseq-api"),
		PipelineMetrics: pipelineMetrics,

		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
