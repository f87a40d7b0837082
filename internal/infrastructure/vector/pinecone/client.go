// Package pinecone queries a serverless Pinecone index over its REST
// data-plane API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/infrastructure/resilience"
)

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for one index. host is the per-index data-plane
// endpoint, e.g. https://my-index-abc123.svc.us-east-1.pinecone.io.
func New(host, apiKey string, executor *resilience.Executor) *Client {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type sparseValues struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

type queryRequest struct {
	Vector          []float32     `json:"vector"`
	SparseVector    *sparseValues `json:"sparseVector,omitempty"`
	TopK            int           `json:"topK"`
	Namespace       string        `json:"namespace,omitempty"`
	IncludeMetadata bool          `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

func (c *Client) Query(ctx context.Context, query domain.IndexQuery) ([]domain.IndexMatch, error) {
	request := queryRequest{
		Vector:          query.Dense,
		TopK:            query.TopK,
		Namespace:       query.Namespace,
		IncludeMetadata: true,
	}
	if len(query.Sparse.Indices) > 0 {
		request.SparseVector = &sparseValues{
			Indices: query.Sparse.Indices,
			Values:  query.Sparse.Values,
		}
	}

	var response queryResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/query", request, &response)
	}
	if err := c.executor.Execute(ctx, "pinecone.query", call, classifyIndexError); err != nil {
		return nil, wrapUnavailableIfNeeded("pinecone.query", err)
	}

	matches := make([]domain.IndexMatch, 0, len(response.Matches))
	for _, m := range response.Matches {
		matches = append(matches, domain.IndexMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return matches, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &httpStatusError{
			statusCode: resp.StatusCode,
			status:     resp.Status,
			body:       string(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode query response: %w", err)
	}
	return nil
}

type httpStatusError struct {
	statusCode int
	status     string
	body       string
}

func (e *httpStatusError) Error() string {
	if strings.TrimSpace(e.body) == "" {
		return fmt.Sprintf("pinecone query status: %s", e.status)
	}
	return fmt.Sprintf("pinecone query status: %s: %s", e.status, strings.TrimSpace(e.body))
}

func classifyIndexError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapUnavailableIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	class := classifyIndexError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrUpstreamUnavailable, operation, err)
	}
	return err
}
