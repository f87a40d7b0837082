package bgem3

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clauseq/clauseq/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEncodeQueryFlattensLexicalWeights(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/encode" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Texts) != 1 || payload.Texts[0] != "knee surgery" {
			t.Fatalf("unexpected texts: %v", payload.Texts)
		}
		_, _ = w.Write([]byte(`{
			"dense_vecs": [[0.1, 0.2, 0.3]],
			"lexical_weights": [{"907": 0.5, "42": 0.25, "13": 0.0}]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	embedding, err := client.EncodeQuery(context.Background(), "knee surgery")
	if err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}
	if len(embedding.Dense) != 3 || embedding.Dense[0] != 0.1 {
		t.Fatalf("unexpected dense vector: %v", embedding.Dense)
	}
	wantIndices := []uint32{42, 907}
	if len(embedding.Sparse.Indices) != len(wantIndices) {
		t.Fatalf("unexpected sparse indices: %v", embedding.Sparse.Indices)
	}
	for i, idx := range wantIndices {
		if embedding.Sparse.Indices[i] != idx {
			t.Fatalf("expected ascending indices %v, got %v", wantIndices, embedding.Sparse.Indices)
		}
	}
	if embedding.Sparse.Values[0] != 0.25 || embedding.Sparse.Values[1] != 0.5 {
		t.Fatalf("values must align with sorted indices, got %v", embedding.Sparse.Values)
	}
}

func TestEncodeQueryRejectsEmptyDense(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dense_vecs": [], "lexical_weights": []}`))
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	if _, err := client.EncodeQuery(context.Background(), "q"); err == nil {
		t.Fatal("expected error for empty dense vector")
	}
}

func TestScorePairsMatchesPassageOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"scores": [0.9, 0.1]}`))
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	scores, err := client.ScorePairs(context.Background(), "q", []string{"a", "b"})
	if err != nil {
		t.Fatalf("ScorePairs() error = %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.9 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}

func TestScorePairsRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scores": [0.9]}`))
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	if _, err := client.ScorePairs(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatal("expected error for score count mismatch")
	}
}
