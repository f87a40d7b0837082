package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/core/prompt"
)

// scriptedPipeline answers both the enhancer and the generator from one
// payload: the JSON carries intent/entities for the former and a decision
// derived from the question for the latter. Per-question delays let tests
// scramble completion order.
type scriptedPipeline struct {
	mu        sync.Mutex
	questions []string
	delays    map[string]time.Duration
}

func (s *scriptedPipeline) Generate(ctx context.Context, promptText string, _ ports.GenerationParams) (string, error) {
	question := ""
	for _, q := range s.questions {
		if strings.Contains(promptText, q) {
			question = q
			break
		}
	}
	if d := s.delays[question]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf(`{"intent": "coverage_check", "entities": ["e"], "decision": %q}`, "answer:"+question), nil
}

func newScriptedBatchRunner(t *testing.T, pipeline *scriptedPipeline, opts BatchOptions) *BatchRunner {
	t.Helper()
	prompts := prompt.MustLoad()
	encoder := &fakeEncoder{embedding: domain.HybridEmbedding{Dense: []float32{1}}}
	index := &fakeIndex{matches: []domain.IndexMatch{
		{ID: "c1", Score: 0.9, Metadata: map[string]any{"text_content": "clause"}},
	}}
	return NewBatchRunner(
		NewEnhancer(pipeline, prompts, testLogger()),
		NewRetriever(encoder, index, nil, "", testLogger()),
		NewGenerator(pipeline, prompts, testLogger()),
		DefaultRetrieveOptions(),
		opts,
		nil,
		testLogger(),
	)
}

func TestRunBatchEmptyInputYieldsEmptyNonNil(t *testing.T) {
	runner := newScriptedBatchRunner(t, &scriptedPipeline{}, DefaultBatchOptions())

	results := runner.RunBatch(context.Background(), nil)
	if results == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestRunBatchPreservesInputOrderUnderDelays(t *testing.T) {
	questions := []string{"q-one", "q-two", "q-three", "q-four"}
	pipeline := &scriptedPipeline{
		questions: questions,
		delays: map[string]time.Duration{
			"q-one":   40 * time.Millisecond,
			"q-three": 20 * time.Millisecond,
		},
	}
	runner := newScriptedBatchRunner(t, pipeline, BatchOptions{MaxWorkers: 2, QuestionTimeout: 5 * time.Second})

	results := runner.RunBatch(context.Background(), questions)
	if len(results) != len(questions) {
		t.Fatalf("expected %d results, got %d", len(questions), len(results))
	}
	for i, q := range questions {
		if results[i].Question != q {
			t.Fatalf("position %d: expected %q, got %q", i, q, results[i].Question)
		}
		if results[i].Status != domain.StatusSuccess {
			t.Fatalf("position %d: unexpected status %s (%s)", i, results[i].Status, results[i].Error)
		}
		if results[i].GeneratedAnswer != "answer:"+q {
			t.Fatalf("position %d: unexpected answer %q", i, results[i].GeneratedAnswer)
		}
	}
}

func TestRunBatchTimeoutYieldsErrorAtCorrectPosition(t *testing.T) {
	questions := []string{"q-fast", "q-stuck", "q-also-fast"}
	pipeline := &scriptedPipeline{
		questions: questions,
		delays: map[string]time.Duration{
			"q-stuck": 10 * time.Second,
		},
	}
	runner := newScriptedBatchRunner(t, pipeline, BatchOptions{MaxWorkers: 2, QuestionTimeout: 50 * time.Millisecond})

	results := runner.RunBatch(context.Background(), questions)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Status != domain.StatusSuccess || results[2].Status != domain.StatusSuccess {
		t.Fatalf("siblings must complete: %s / %s", results[0].Status, results[2].Status)
	}
	stuck := results[1]
	if stuck.Question != "q-stuck" || stuck.Status != domain.StatusError {
		t.Fatalf("expected error result for stuck question, got %+v", stuck)
	}
	if !strings.HasPrefix(stuck.Error, "Processing failed: ") {
		t.Fatalf("unexpected error message: %s", stuck.Error)
	}
	if !strings.Contains(stuck.Error, "timed out") {
		t.Fatalf("error must carry the timeout cause: %s", stuck.Error)
	}
}

func TestRunBatchHandlesDuplicateQuestions(t *testing.T) {
	questions := []string{"q-dup", "q-dup", "q-other"}
	pipeline := &scriptedPipeline{questions: questions}
	runner := newScriptedBatchRunner(t, pipeline, DefaultBatchOptions())

	results := runner.RunBatch(context.Background(), questions)
	if len(results) != 3 {
		t.Fatalf("expected one result per input question, got %d", len(results))
	}
	if results[0].Question != "q-dup" || results[1].Question != "q-dup" || results[2].Question != "q-other" {
		t.Fatalf("unexpected order: %s %s %s", results[0].Question, results[1].Question, results[2].Question)
	}
}

func TestRunBatchCapsWorkersAtQuestionCount(t *testing.T) {
	pipeline := &scriptedPipeline{questions: []string{"only"}}
	runner := newScriptedBatchRunner(t, pipeline, BatchOptions{MaxWorkers: 16, QuestionTimeout: time.Second})

	results := runner.RunBatch(context.Background(), []string{"only"})
	if len(results) != 1 || results[0].Status != domain.StatusSuccess {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestAnswersFlattensResults(t *testing.T) {
	results := []domain.QuestionResult{
		{Status: domain.StatusSuccess, GeneratedAnswer: "Approved"},
		{Status: domain.StatusError, Error: "Processing failed: boom"},
		{Status: domain.StatusError},
	}
	answers := Answers(results)
	want := []string{"Approved", "Error: Processing failed: boom", "Error: Unknown error"}
	for i := range want {
		if answers[i] != want[i] {
			t.Fatalf("answer %d = %q, want %q", i, answers[i], want[i])
		}
	}
}

func TestExtractDecisionFallsBackToSerializedAnswer(t *testing.T) {
	answer := domain.GeneratedAnswer{Justification: "only prose", Clauses: []domain.ClauseCitation{}}
	got := extractDecision(answer)
	if !strings.Contains(got, "only prose") {
		t.Fatalf("expected serialized answer, got %q", got)
	}
}

func TestRunBatchEndToEndWaitingPeriodExample(t *testing.T) {
	clause := "Expenses related to the treatment of a pre-existing disease and its direct complications shall be excluded until the expiry of 36 months of continuous coverage after the date of inception of the first policy."
	prompts := prompt.MustLoad()
	pipeline := &fakeTextGenerator{outputs: []string{
		`{"intent": "clause_lookup", "entities": ["waiting period", "pre-existing diseases"]}`,
		`{"decision": "The waiting period for pre-existing diseases is 36 months of continuous coverage.", "amount": null, "justification": "Stated in the exclusions section.", "clauses": [{"content": "` + clause + `", "document": "policy.pdf", "section": "Exclusions"}]}`,
	}}
	encoder := &fakeEncoder{embedding: domain.HybridEmbedding{
		Dense:  []float32{0.2, 0.8},
		Sparse: domain.SparseVector{Indices: []uint32{11}, Values: []float32{0.6}},
	}}
	index := &fakeIndex{matches: []domain.IndexMatch{
		{ID: "chunk-42", Score: 0.93, Metadata: map[string]any{
			"text_content":      clause,
			"document_name":     "policy.pdf",
			"section_hierarchy": []any{"Part II", "Exclusions"},
		}},
	}}
	runner := NewBatchRunner(
		NewEnhancer(pipeline, prompts, testLogger()),
		NewRetriever(encoder, index, nil, "policies", testLogger()),
		NewGenerator(pipeline, prompts, testLogger()),
		DefaultRetrieveOptions(),
		DefaultBatchOptions(),
		nil,
		testLogger(),
	)

	results := runner.RunBatch(context.Background(), []string{
		"What is the waiting period for pre-existing diseases?",
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	result := results[0]
	if result.Status != domain.StatusSuccess {
		t.Fatalf("unexpected status %s: %s", result.Status, result.Error)
	}
	if result.Answer == nil || len(result.Answer.Clauses) != 1 {
		t.Fatalf("expected one cited clause, got %+v", result.Answer)
	}
	if !strings.Contains(result.Answer.Decision, "36 months") {
		t.Fatalf("decision must cite the waiting period, got %q", result.Answer.Decision)
	}
	if result.Answer.Clauses[0].Content != clause {
		t.Fatalf("clause content must be verbatim, got %q", result.Answer.Clauses[0].Content)
	}
	if len(result.Chunks) != 1 || result.Chunks[0].ID != "chunk-42" {
		t.Fatalf("unexpected chunks: %+v", result.Chunks)
	}
}
