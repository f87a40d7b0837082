// Package bgem3 talks to a BGE-M3 serving sidecar that exposes dense and
// lexical-weight encodings plus cross-encoder scoring over HTTP.
package bgem3

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// EncodeQuery returns the dense vector and the lexical weights of text.
// Lexical weights arrive keyed by token id and are flattened into a
// sparse vector with ascending indices; non-positive weights are dropped.
func (c *Client) EncodeQuery(ctx context.Context, text string) (domain.HybridEmbedding, error) {
	request := map[string]any{
		"texts":         []string{text},
		"return_dense":  true,
		"return_sparse": true,
	}

	var response struct {
		DenseVecs      [][]float32          `json:"dense_vecs"`
		LexicalWeights []map[string]float32 `json:"lexical_weights"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/encode", request, &response, "encode")
	}
	if err := c.executor.Execute(ctx, "bgem3.encode", call, classifyEncoderError); err != nil {
		return domain.HybridEmbedding{}, wrapUnavailableIfNeeded("bgem3.encode", err)
	}

	if len(response.DenseVecs) == 0 || len(response.DenseVecs[0]) == 0 {
		return domain.HybridEmbedding{}, fmt.Errorf("bgem3 encode: empty dense vector")
	}
	embedding := domain.HybridEmbedding{Dense: response.DenseVecs[0]}
	if len(response.LexicalWeights) > 0 {
		sparse, err := sparseFromLexicalWeights(response.LexicalWeights[0])
		if err != nil {
			return domain.HybridEmbedding{}, err
		}
		embedding.Sparse = sparse
	}
	return embedding, nil
}

// ScorePairs asks the sidecar's cross encoder to score each passage
// against query. The result order matches the passage order.
func (c *Client) ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"query":    query,
		"passages": passages,
	}
	var response struct {
		Scores []float64 `json:"scores"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/rerank", request, &response, "rerank")
	}
	if err := c.executor.Execute(ctx, "bgem3.rerank", call, classifyEncoderError); err != nil {
		return nil, wrapUnavailableIfNeeded("bgem3.rerank", err)
	}

	if len(response.Scores) != len(passages) {
		return nil, fmt.Errorf("bgem3 rerank: got %d scores for %d passages", len(response.Scores), len(passages))
	}
	return response.Scores, nil
}

func sparseFromLexicalWeights(weights map[string]float32) (domain.SparseVector, error) {
	indices := make([]uint32, 0, len(weights))
	byIndex := make(map[uint32]float32, len(weights))
	for token, weight := range weights {
		if weight <= 0 {
			continue
		}
		id, err := strconv.ParseUint(token, 10, 32)
		if err != nil {
			return domain.SparseVector{}, fmt.Errorf("bgem3 encode: lexical token %q: %w", token, err)
		}
		indices = append(indices, uint32(id))
		byIndex[uint32(id)] = weight
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, id := range indices {
		values[i] = byIndex[id]
	}
	return domain.SparseVector{Indices: indices, Values: values}, nil
}
