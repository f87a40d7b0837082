package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
)

// RetrieveOptions tune one hybrid retrieval call. TopKInitial is the broad
// candidate width consumed by the optional rerank strategy; the default
// strategy queries the index directly for TopKFinal and leaves TopKInitial
// unused.
type RetrieveOptions struct {
	TopKInitial int
	TopKFinal   int
	Alpha       float64
}

func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		TopKInitial: 35,
		TopKFinal:   5,
		Alpha:       0.5,
	}
}

// Retriever composes the enhanced query into a single search string, embeds
// it into weighted dense+sparse vectors, and queries the vector index.
// Upstream failures are absorbed into an empty result set; the only error it
// returns is the alpha precondition.
type Retriever struct {
	encoder   ports.HybridEncoder
	index     ports.VectorIndex
	reranker  ports.Reranker
	namespace string
	logger    *slog.Logger
}

func NewRetriever(
	encoder ports.HybridEncoder,
	index ports.VectorIndex,
	reranker ports.Reranker,
	namespace string,
	logger *slog.Logger,
) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		encoder:   encoder,
		index:     index,
		reranker:  reranker,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, enhanced domain.EnhancedQuery, opts RetrieveOptions) ([]domain.RetrievedChunk, error) {
	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "hybrid retrieval",
			fmt.Errorf("alpha must be between 0 and 1, got %v", opts.Alpha))
	}
	if opts.TopKFinal <= 0 {
		opts.TopKFinal = DefaultRetrieveOptions().TopKFinal
	}
	if opts.TopKInitial < opts.TopKFinal {
		opts.TopKInitial = DefaultRetrieveOptions().TopKInitial
	}

	searchQuery := composeSearchQuery(enhanced)
	embedding, err := r.encoder.EncodeQuery(ctx, searchQuery)
	if err != nil {
		r.logger.Warn("retrieval_failed", "stage", "encode", "error", err)
		return nil, nil
	}

	dense, sparse := hybridScoreNorm(embedding.Dense, embedding.Sparse, opts.Alpha)

	// The rerank strategy retrieves broad then narrows; the default strategy
	// asks the index for the final width directly.
	topK := opts.TopKFinal
	if r.reranker != nil {
		topK = opts.TopKInitial
	}

	matches, err := r.index.Query(ctx, domain.IndexQuery{
		Dense:     dense,
		Sparse:    sparse,
		TopK:      topK,
		Namespace: r.namespace,
	})
	if err != nil {
		r.logger.Warn("retrieval_failed", "stage", "index_query", "error", err)
		return nil, nil
	}

	chunks := dedupeMatches(matches)
	if r.reranker != nil {
		reranked, err := r.reranker.Rerank(ctx, searchQuery, chunks)
		if err != nil {
			r.logger.Warn("rerank_failed", "error", err)
		} else {
			chunks = reranked
		}
	}

	if len(chunks) > opts.TopKFinal {
		chunks = chunks[:opts.TopKFinal]
	}
	return chunks, nil
}

// composeSearchQuery flattens the structured query back into one string:
// raw query, then entities, keywords, and conditions, space-joined with
// empty fields skipped. The structured breakdown is otherwise discarded.
func composeSearchQuery(enhanced domain.EnhancedQuery) string {
	parts := make([]string, 0, 1+len(enhanced.Entities)+len(enhanced.Keywords)+len(enhanced.Conditions))
	appendPart := func(s string) {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	appendPart(enhanced.RawQuery)
	for _, entity := range enhanced.Entities {
		appendPart(entity)
	}
	for _, keyword := range enhanced.Keywords {
		appendPart(keyword)
	}
	for _, condition := range enhanced.Conditions {
		appendPart(condition)
	}
	return strings.Join(parts, " ")
}

// hybridScoreNorm scales the dense values by alpha and the sparse values by
// (1 - alpha), producing one weighted hybrid query. Alpha is validated by
// the caller.
func hybridScoreNorm(dense []float32, sparse domain.SparseVector, alpha float64) ([]float32, domain.SparseVector) {
	weightedDense := make([]float32, len(dense))
	for i, v := range dense {
		weightedDense[i] = v * float32(alpha)
	}
	weightedSparse := domain.SparseVector{
		Indices: append([]uint32(nil), sparse.Indices...),
		Values:  make([]float32, len(sparse.Values)),
	}
	for i, v := range sparse.Values {
		weightedSparse.Values[i] = v * float32(1-alpha)
	}
	return weightedDense, weightedSparse
}

// dedupeMatches drops duplicate index ids, keeping the first occurrence in
// index-returned order, and converts survivors to chunks with the index's
// native score.
func dedupeMatches(matches []domain.IndexMatch) []domain.RetrievedChunk {
	seen := make(map[string]struct{}, len(matches))
	out := make([]domain.RetrievedChunk, 0, len(matches))
	for _, match := range matches {
		if _, dup := seen[match.ID]; dup {
			continue
		}
		seen[match.ID] = struct{}{}
		out = append(out, chunkFromMatch(match))
	}
	return out
}

func chunkFromMatch(match domain.IndexMatch) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		ID:           match.ID,
		Score:        match.Score,
		Text:         metadataString(match.Metadata, "text_content"),
		DocumentName: metadataString(match.Metadata, "document_name"),
		SectionPath:  metadataStrings(match.Metadata, "section_hierarchy"),
	}
}

func metadataString(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func metadataStrings(metadata map[string]any, key string) []string {
	v, ok := metadata[key]
	if !ok {
		return nil
	}
	switch vs := v.(type) {
	case []string:
		return append([]string(nil), vs...)
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case string:
		return []string{vs}
	default:
		return nil
	}
}
