package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/observability/metrics"
)

// BatchOptions tune one batch run. Defaults mirror the service contract:
// two workers, thirty seconds per question.
type BatchOptions struct {
	MaxWorkers      int
	QuestionTimeout time.Duration
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxWorkers:      2,
		QuestionTimeout: 30 * time.Second,
	}
}

// BatchRunner fans questions out across a bounded worker pool and runs each
// through enhance -> retrieve -> generate. Failures stay per-question: a
// panicking, erroring, or timed-out unit becomes an error-status result and
// never aborts its siblings. Output order always matches input order.
type BatchRunner struct {
	enhancer     *Enhancer
	retriever    *Retriever
	generator    *Generator
	retrieveOpts RetrieveOptions
	opts         BatchOptions
	metrics      *metrics.PipelineMetrics
	logger       *slog.Logger
}

func NewBatchRunner(
	enhancer *Enhancer,
	retriever *Retriever,
	generator *Generator,
	retrieveOpts RetrieveOptions,
	opts BatchOptions,
	pipelineMetrics *metrics.PipelineMetrics,
	logger *slog.Logger,
) *BatchRunner {
	def := DefaultBatchOptions()
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = def.MaxWorkers
	}
	if opts.QuestionTimeout <= 0 {
		opts.QuestionTimeout = def.QuestionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		enhancer:     enhancer,
		retriever:    retriever,
		generator:    generator,
		retrieveOpts: retrieveOpts,
		opts:         opts,
		metrics:      pipelineMetrics,
		logger:       logger,
	}
}

func (b *BatchRunner) RunBatch(ctx context.Context, questions []string) []domain.QuestionResult {
	if len(questions) == 0 {
		return []domain.QuestionResult{}
	}

	workers := b.opts.MaxWorkers
	if workers > len(questions) {
		workers = len(questions)
	}

	jobs := make(chan string)
	collected := make([]domain.QuestionResult, 0, len(questions))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for question := range jobs {
				result := b.processQuestion(ctx, question)
				mu.Lock()
				collected = append(collected, result)
				mu.Unlock()
			}
		}()
	}

	for _, question := range questions {
		jobs <- question
	}
	close(jobs)
	wg.Wait()

	reorderResults(collected, questions)
	return collected
}

// processQuestion runs one unit under its own deadline. A unit that never
// returns is converted to an error result at the deadline; its worker slot
// is occupied until then, which is the accepted cost of having no batch-wide
// cancellation.
func (b *BatchRunner) processQuestion(ctx context.Context, question string) domain.QuestionResult {
	started := time.Now()
	qctx, cancel := context.WithTimeout(ctx, b.opts.QuestionTimeout)
	defer cancel()

	done := make(chan domain.QuestionResult, 1)
	go func() {
		done <- b.runPipeline(qctx, question)
	}()

	var result domain.QuestionResult
	select {
	case result = <-done:
	case <-qctx.Done():
		cause := domain.WrapError(domain.ErrQuestionTimeout, "question", qctx.Err())
		result = errorResult(question, cause)
	}

	b.observe(result, time.Since(started))
	return result
}

func (b *BatchRunner) runPipeline(ctx context.Context, question string) (result domain.QuestionResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("question_panic", "question", question, "panic", r)
			result = errorResult(question, fmt.Errorf("panic: %v", r))
		}
	}()

	enhanced := b.enhancer.Enhance(ctx, question)
	chunks, err := b.retriever.Retrieve(ctx, enhanced, b.retrieveOpts)
	if err != nil {
		return errorResult(question, err)
	}
	answer := b.generator.Generate(ctx, question, chunks)

	return domain.QuestionResult{
		Question:        question,
		Status:          domain.StatusSuccess,
		Enhanced:        &enhanced,
		Chunks:          chunks,
		Answer:          &answer,
		GeneratedAnswer: extractDecision(answer),
	}
}

func (b *BatchRunner) observe(result domain.QuestionResult, elapsed time.Duration) {
	if b.metrics == nil {
		return
	}
	b.metrics.ObserveQuestion(string(result.Status), elapsed)
	if result.Status == domain.StatusSuccess {
		b.metrics.ObserveRetrievedChunks(len(result.Chunks))
	}
}

func errorResult(question string, cause error) domain.QuestionResult {
	return domain.QuestionResult{
		Question: question,
		Status:   domain.StatusError,
		Error:    fmt.Sprintf("Processing failed: %v", cause),
	}
}

// reorderResults sorts completed results back into input order by the first
// occurrence of each result's question in the input list; a result whose
// question cannot be matched sorts last.
func reorderResults(results []domain.QuestionResult, questions []string) {
	position := make(map[string]int, len(questions))
	for i, q := range questions {
		if _, seen := position[q]; !seen {
			position[q] = i
		}
	}
	rank := func(r domain.QuestionResult) int {
		if p, ok := position[r.Question]; ok {
			return p
		}
		return len(questions)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return rank(results[i]) < rank(results[j])
	})
}

// Answers flattens batch results for callers uninterested in citations:
// the decision on success, a readable error string on failure.
func Answers(results []domain.QuestionResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			out = append(out, r.GeneratedAnswer)
			continue
		}
		message := r.Error
		if message == "" {
			message = "Unknown error"
		}
		out = append(out, "Error: "+message)
	}
	return out
}

// extractDecision pulls the display string out of a structured answer,
// falling back to the whole object when the decision field is blank.
func extractDecision(answer domain.GeneratedAnswer) string {
	if strings.TrimSpace(answer.Decision) != "" {
		return answer.Decision
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		return answer.Justification
	}
	return string(raw)
}
