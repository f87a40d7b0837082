package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clauseq/clauseq/internal/core/prompt"
)

func newTestEnhancer(generator *fakeTextGenerator) *Enhancer {
	return NewEnhancer(generator, prompt.MustLoad(), testLogger())
}

func TestEnhanceParsesStructuredQuery(t *testing.T) {
	generator := &fakeTextGenerator{outputs: []string{
		`{"intent": "coverage_check", "entities": ["knee surgery"], "keywords": ["orthopedic"], "conditions": ["3-month policy"], "raw_query": "model echo"}`,
	}}
	enhancer := newTestEnhancer(generator)

	enhanced := enhancer.Enhance(context.Background(), "Does this policy cover knee surgery?")
	if enhanced.Intent != "coverage_check" {
		t.Fatalf("unexpected intent: %s", enhanced.Intent)
	}
	if len(enhanced.Entities) != 1 || enhanced.Entities[0] != "knee surgery" {
		t.Fatalf("unexpected entities: %v", enhanced.Entities)
	}
	if enhanced.RawQuery != "Does this policy cover knee surgery?" {
		t.Fatalf("raw query must be the input, got %q", enhanced.RawQuery)
	}
}

func TestEnhanceEmbedsQueryInPrompt(t *testing.T) {
	generator := &fakeTextGenerator{outputs: []string{
		`{"intent": "general_query", "entities": ["x"]}`,
	}}
	enhancer := newTestEnhancer(generator)

	enhancer.Enhance(context.Background(), "What is the waiting period?")
	if len(generator.prompts) != 1 || !strings.Contains(generator.prompts[0], "What is the waiting period?") {
		t.Fatalf("prompt must embed the raw query")
	}
}

func TestEnhanceFallsBackOnGenerateError(t *testing.T) {
	generator := &fakeTextGenerator{err: errors.New("upstream down")}
	enhancer := newTestEnhancer(generator)

	enhanced := enhancer.Enhance(context.Background(), "raw question")
	if enhanced.Intent != "general_query" {
		t.Fatalf("expected fallback intent, got %s", enhanced.Intent)
	}
	if len(enhanced.Entities) != 1 || enhanced.Entities[0] != "raw question" {
		t.Fatalf("fallback entities must carry the raw query, got %v", enhanced.Entities)
	}
	if enhanced.RawQuery != "raw question" {
		t.Fatalf("unexpected raw query: %s", enhanced.RawQuery)
	}
}

func TestEnhanceFallsBackOnUnparseableOutput(t *testing.T) {
	cases := []struct {
		name   string
		output string
	}{
		{"no json", "I don't know."},
		{"broken json", `{"intent": "x", "entities": [`},
		{"missing intent", `{"entities": ["a"]}`},
		{"blank intent", `{"intent": "  ", "entities": ["a"]}`},
		{"missing entities", `{"intent": "coverage_check", "entities": []}`},
		{"blank entities", `{"intent": "coverage_check", "entities": ["", "  "]}`},
	}
	for _, tc := range cases {
		generator := &fakeTextGenerator{outputs: []string{tc.output}}
		enhancer := newTestEnhancer(generator)

		enhanced := enhancer.Enhance(context.Background(), "q")
		if enhanced.Intent != "general_query" {
			t.Errorf("%s: expected fallback, got intent %q", tc.name, enhanced.Intent)
		}
	}
}

func TestEnhanceToleratesTrailingCommas(t *testing.T) {
	generator := &fakeTextGenerator{outputs: []string{
		`{"intent": "coverage_check", "entities": ["cataract",],}`,
	}}
	enhancer := newTestEnhancer(generator)

	enhanced := enhancer.Enhance(context.Background(), "q")
	if enhanced.Intent != "coverage_check" {
		t.Fatalf("expected parsed intent, got %s", enhanced.Intent)
	}
}
