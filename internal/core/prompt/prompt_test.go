package prompt

import (
	"strings"
	"testing"
)

func TestLoadEmbeddedLibrary(t *testing.T) {
	lib, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(lib.Enhancer.Examples) == 0 {
		t.Fatalf("expected enhancer examples")
	}
	if len(lib.Generator.Examples) != 2 {
		t.Fatalf("expected exactly 2 generator examples, got %d", len(lib.Generator.Examples))
	}
	for i, ex := range lib.Generator.Examples {
		if strings.Contains(ex.Answer, "\n") {
			t.Fatalf("generator example %d answer must be single-line JSON", i+1)
		}
	}
}

func TestEnhancerPromptEmbedsQuery(t *testing.T) {
	lib := MustLoad()
	p := lib.EnhancerPrompt("Is cataract surgery covered?")
	if !strings.Contains(p, `"Is cataract surgery covered?"`) {
		t.Fatalf("prompt does not embed the query:\n%s", p)
	}
	if !strings.Contains(p, "**Schema:**") || !strings.Contains(p, "**Examples:**") {
		t.Fatalf("prompt missing fixed sections:\n%s", p)
	}
	if !strings.HasSuffix(p, "JSON:\n") {
		t.Fatalf("prompt must end with the JSON cue")
	}
}

func TestGeneratorPromptLayout(t *testing.T) {
	lib := MustLoad()
	p := lib.GeneratorPrompt("--- Context Chunk 1 ---\nContent: text\n\n", "What is covered?")
	for _, section := range []string{"**EXAMPLE 1**", "**EXAMPLE 2**", "**ACTUAL TASK**", "**User Query:** What is covered?"} {
		if !strings.Contains(p, section) {
			t.Fatalf("prompt missing %q:\n%s", section, p)
		}
	}
	if strings.Index(p, "**EXAMPLE 2**") > strings.Index(p, "**ACTUAL TASK**") {
		t.Fatalf("examples must precede the live task")
	}
}
