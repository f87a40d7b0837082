package ports

import (
	"context"

	"github.com/clauseq/clauseq/internal/core/domain"
)

// BatchRunner is the inbound contract for running a question batch against
// the already-indexed corpus. It never fails structurally: every question
// yields exactly one result, in input order.
type BatchRunner interface {
	RunBatch(ctx context.Context, questions []string) []domain.QuestionResult
}

// RunService is the inbound contract for the full document+questions run:
// fetch the document, execute the batch, persist and publish the outcome,
// and return the flattened answer strings.
type RunService interface {
	Run(ctx context.Context, documentURL string, questions []string) ([]string, error)
}
