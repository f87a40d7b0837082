package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/observability/metrics"
)

// RunUseCase is the full document-and-questions entry point: stage the
// source document, run the batch, record and announce the outcome, and hand
// back flattened answers. The audit store and event publisher are optional;
// their failures are logged, never surfaced, because the answers are already
// computed by then.
type RunUseCase struct {
	fetcher ports.DocumentFetcher
	batch   ports.BatchRunner
	store   ports.RunStore
	events  ports.EventPublisher
	metrics *metrics.PipelineMetrics
	logger  *slog.Logger
}

func NewRunUseCase(
	fetcher ports.DocumentFetcher,
	batch ports.BatchRunner,
	store ports.RunStore,
	events ports.EventPublisher,
	pipelineMetrics *metrics.PipelineMetrics,
	logger *slog.Logger,
) *RunUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunUseCase{
		fetcher: fetcher,
		batch:   batch,
		store:   store,
		events:  events,
		metrics: pipelineMetrics,
		logger:  logger,
	}
}

func (uc *RunUseCase) Run(ctx context.Context, documentURL string, questions []string) ([]string, error) {
	path, cleanup, err := uc.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	defer cleanup()
	uc.logger.Info("document_staged", "url", documentURL, "path", path, "questions", len(questions))

	started := time.Now()
	results := uc.batch.RunBatch(ctx, questions)
	elapsed := time.Since(started)

	run := buildRunRecord(documentURL, results, elapsed)
	if uc.metrics != nil {
		status := "ok"
		if run.FailedCount > 0 {
			status = "partial"
		}
		uc.metrics.ObserveRun(status, elapsed)
	}
	if uc.store != nil {
		if err := uc.store.SaveRun(ctx, run, results); err != nil {
			uc.logger.Error("run_audit_failed", "run_id", run.ID, "error", err)
		}
	}
	if uc.events != nil {
		event := domain.RunCompleted{
			RunID:         run.ID,
			DocumentURL:   documentURL,
			QuestionCount: run.QuestionCount,
			FailedCount:   run.FailedCount,
			DurationMS:    elapsed.Milliseconds(),
		}
		if err := uc.events.PublishRunCompleted(ctx, event); err != nil {
			uc.logger.Error("run_event_failed", "run_id", run.ID, "error", err)
		}
	}

	return Answers(results), nil
}

func buildRunRecord(documentURL string, results []domain.QuestionResult, elapsed time.Duration) *domain.Run {
	failed := 0
	for _, r := range results {
		if r.Status == domain.StatusError {
			failed++
		}
	}
	return &domain.Run{
		ID:            uuid.NewString(),
		DocumentURL:   documentURL,
		QuestionCount: len(results),
		AnsweredCount: len(results) - failed,
		FailedCount:   failed,
		Duration:      elapsed,
		CreatedAt:     time.Now().UTC(),
	}
}
