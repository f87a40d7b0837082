package ports

import (
	"context"

	"github.com/clauseq/clauseq/internal/core/domain"
)

// GenerationParams tune one text-generation call.
type GenerationParams struct {
	Temperature     float32
	MaxOutputTokens int
}

// TextGenerator is the text-generation capability. Output carries no format
// guarantee: prose, markdown fences, invalid or truncated JSON are all
// possible and are the caller's problem.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// HybridEncoder turns query text into dense and sparse representations.
type HybridEncoder interface {
	EncodeQuery(ctx context.Context, text string) (domain.HybridEmbedding, error)
}

// VectorIndex answers weighted hybrid queries against a pre-built index.
type VectorIndex interface {
	Query(ctx context.Context, query domain.IndexQuery) ([]domain.IndexMatch, error)
}

// CrossEncoderScorer scores (query, passage) pairs for secondary ranking.
type CrossEncoderScorer interface {
	ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Reranker reorders retrieved chunks. Implementations must keep each chunk's
// index-native score untouched; only the order may change.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []domain.RetrievedChunk) ([]domain.RetrievedChunk, error)
}

// DocumentFetcher downloads a source document to scratch storage and returns
// its local path plus a cleanup callback.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// RunStore persists batch-run audit records.
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.Run, results []domain.QuestionResult) error
}

// EventPublisher emits run lifecycle events.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event domain.RunCompleted) error
}

// RunQueue carries asynchronous batch-run requests.
type RunQueue interface {
	PublishRunRequested(ctx context.Context, req domain.RunRequest) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, domain.RunRequest) error) error
}
