package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTextGenerator replays scripted outputs; the last one repeats. It is
// safe for concurrent use so batch tests can share one instance.
type fakeTextGenerator struct {
	mu      sync.Mutex
	outputs []string
	err     error
	calls   int
	prompts []string

	// blockOn, when non-empty, makes calls whose prompt contains the marker
	// hang until the context is done.
	blockOn string
}

func (f *fakeTextGenerator) Generate(ctx context.Context, prompt string, _ ports.GenerationParams) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	blockOn := f.blockOn
	f.mu.Unlock()

	if blockOn != "" && strings.Contains(prompt, blockOn) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.outputs) == 0 {
		return "", nil
	}
	out := f.outputs[0]
	if len(f.outputs) > 1 {
		f.outputs = f.outputs[1:]
	}
	return out, nil
}

func (f *fakeTextGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEncoder struct {
	embedding domain.HybridEmbedding
	err       error

	mu       sync.Mutex
	gotTexts []string
}

func (f *fakeEncoder) EncodeQuery(_ context.Context, text string) (domain.HybridEmbedding, error) {
	f.mu.Lock()
	f.gotTexts = append(f.gotTexts, text)
	f.mu.Unlock()
	if f.err != nil {
		return domain.HybridEmbedding{}, f.err
	}
	return f.embedding, nil
}

type fakeIndex struct {
	matches []domain.IndexMatch
	err     error

	mu         sync.Mutex
	calls      int
	gotQueries []domain.IndexQuery
}

func (f *fakeIndex) Query(_ context.Context, query domain.IndexQuery) ([]domain.IndexMatch, error) {
	f.mu.Lock()
	f.calls++
	f.gotQueries = append(f.gotQueries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeIndex) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeScorer struct {
	scores []float64
	err    error
}

func (f *fakeScorer) ScorePairs(_ context.Context, _ string, passages []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

type fakeFetcher struct {
	path    string
	err     error
	cleaned bool
	gotURL  string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, func(), error) {
	f.gotURL = url
	if f.err != nil {
		return "", nil, f.err
	}
	return f.path, func() { f.cleaned = true }, nil
}

type fakeRunStore struct {
	err        error
	gotRun     *domain.Run
	gotResults []domain.QuestionResult
}

func (f *fakeRunStore) SaveRun(_ context.Context, run *domain.Run, results []domain.QuestionResult) error {
	f.gotRun = run
	f.gotResults = results
	return f.err
}

type fakeEventPublisher struct {
	err      error
	gotEvent *domain.RunCompleted
}

func (f *fakeEventPublisher) PublishRunCompleted(_ context.Context, event domain.RunCompleted) error {
	f.gotEvent = &event
	return f.err
}

type fakeBatchRunner struct {
	results []domain.QuestionResult
}

func (f *fakeBatchRunner) RunBatch(_ context.Context, _ []string) []domain.QuestionResult {
	return f.results
}
