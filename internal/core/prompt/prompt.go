// Package prompt holds the prompt templates as versioned configuration data
// so format drift can be corrected without touching pipeline logic.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var rawLibrary []byte

// Example is one worked few-shot example anchored to an exact answer.
type Example struct {
	Context string `yaml:"context,omitempty"`
	Query   string `yaml:"query"`
	Answer  string `yaml:"answer"`
}

type Template struct {
	Instruction string    `yaml:"instruction"`
	Schema      string    `yaml:"schema"`
	Examples    []Example `yaml:"examples"`
}

// Library is the full set of prompt templates loaded from prompts.yaml.
type Library struct {
	Enhancer  Template `yaml:"enhancer"`
	Generator Template `yaml:"generator"`
}

func Load() (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(rawLibrary, &lib); err != nil {
		return nil, fmt.Errorf("parse prompt library: %w", err)
	}
	if err := validateTemplate("enhancer", lib.Enhancer, 1); err != nil {
		return nil, err
	}
	// The generator contract is anchored on exactly two worked examples.
	if err := validateTemplate("generator", lib.Generator, 2); err != nil {
		return nil, err
	}
	if len(lib.Generator.Examples) != 2 {
		return nil, fmt.Errorf("prompt library: generator requires exactly 2 examples, has %d", len(lib.Generator.Examples))
	}
	return &lib, nil
}

// MustLoad panics on an invalid embedded library; the file ships with the
// binary, so a failure here is a build defect, not a runtime condition.
func MustLoad() *Library {
	lib, err := Load()
	if err != nil {
		panic(err)
	}
	return lib
}

func validateTemplate(name string, tpl Template, minExamples int) error {
	if strings.TrimSpace(tpl.Instruction) == "" {
		return fmt.Errorf("prompt library: %s instruction is empty", name)
	}
	if strings.TrimSpace(tpl.Schema) == "" {
		return fmt.Errorf("prompt library: %s schema is empty", name)
	}
	if len(tpl.Examples) < minExamples {
		return fmt.Errorf("prompt library: %s requires at least %d examples, has %d", name, minExamples, len(tpl.Examples))
	}
	return nil
}

// EnhancerPrompt renders the query-enhancement prompt for one raw question.
func (l *Library) EnhancerPrompt(query string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(l.Enhancer.Instruction))
	b.WriteString("\n\n**Schema:**\n")
	b.WriteString(strings.TrimSpace(l.Enhancer.Schema))
	b.WriteString("\n\n**Examples:**\n")
	for i, ex := range l.Enhancer.Examples {
		fmt.Fprintf(&b, "\n%d. Query: %q\n   JSON: %s\n", i+1, ex.Query, ex.Answer)
	}
	b.WriteString("\n**User Query to Process:**\n")
	fmt.Fprintf(&b, "Query: %q\nJSON:\n", query)
	return b.String()
}

// GeneratorPrompt renders the answer-synthesis prompt for a live context
// block and question.
func (l *Library) GeneratorPrompt(contextBlock, query string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(l.Generator.Instruction))
	b.WriteString("\n\n**JSON Schema:**\n")
	b.WriteString(strings.TrimSpace(l.Generator.Schema))
	b.WriteString("\n")
	for i, ex := range l.Generator.Examples {
		fmt.Fprintf(&b, "\n---\n**EXAMPLE %d**\n\n**Context Chunks:**\n%s\n**User Query:** %s\n\n**JSON Answer:**\n%s\n", i+1, ex.Context, ex.Query, ex.Answer)
	}
	b.WriteString("\n---\n**ACTUAL TASK**\n\n**Context Chunks:**\n")
	b.WriteString(contextBlock)
	fmt.Fprintf(&b, "**User Query:** %s\n\n**JSON Answer:**\n", query)
	return b.String()
}
