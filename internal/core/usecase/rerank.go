package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
)

// CrossEncoderReranker is the optional secondary ranking stage: it scores
// (query, passage) pairs with a cross-encoder and reorders candidates by
// that score. It is disabled by default; the emitted chunks keep the
// index-native relevance score either way.
type CrossEncoderReranker struct {
	scorer ports.CrossEncoderScorer
}

func NewCrossEncoderReranker(scorer ports.CrossEncoderScorer) *CrossEncoderReranker {
	return &CrossEncoderReranker{scorer: scorer}
}

func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, chunks []domain.RetrievedChunk) ([]domain.RetrievedChunk, error) {
	if len(chunks) <= 1 {
		return chunks, nil
	}

	passages := make([]string, len(chunks))
	for i, chunk := range chunks {
		passages[i] = chunk.Text
	}

	scores, err := r.scorer.ScorePairs(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("score rerank pairs: %w", err)
	}
	if len(scores) != len(chunks) {
		return nil, fmt.Errorf("rerank score count mismatch: %d scores for %d chunks", len(scores), len(chunks))
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]domain.RetrievedChunk, len(chunks))
	for rank, idx := range order {
		out[rank] = chunks[idx]
	}
	return out, nil
}
