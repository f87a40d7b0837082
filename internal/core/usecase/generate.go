package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/core/prompt"
)

const (
	generateTemperature     = 0.1
	generateMaxOutputTokens = 2048
)

// Generator synthesizes the structured answer from retrieved chunks and the
// original question. It never fails outward: with no chunks it short-circuits
// to a fixed Not Found answer, and any generation or parsing failure is
// absorbed into an Error-decision answer carrying the cause.
type Generator struct {
	generator ports.TextGenerator
	prompts   *prompt.Library
	logger    *slog.Logger
}

func NewGenerator(generator ports.TextGenerator, prompts *prompt.Library, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

func (g *Generator) Generate(ctx context.Context, rawQuery string, chunks []domain.RetrievedChunk) domain.GeneratedAnswer {
	if len(chunks) == 0 {
		return domain.NotFoundAnswer()
	}

	out, err := g.generator.Generate(ctx, g.prompts.GeneratorPrompt(renderContext(chunks), rawQuery), ports.GenerationParams{
		Temperature:     generateTemperature,
		MaxOutputTokens: generateMaxOutputTokens,
	})
	if err != nil {
		g.logger.Warn("answer_generation_failed", "stage", "generate", "error", err, "query", rawQuery)
		return domain.ErrorAnswer(err)
	}

	answer, err := parseGeneratedAnswer(out)
	if err != nil {
		g.logger.Warn("answer_generation_failed", "stage", "parse", "error", err, "query", rawQuery)
		return domain.ErrorAnswer(err)
	}
	return answer
}

// renderContext formats chunks into the plain-text block the prompt contract
// expects: one "Context Chunk N" section per chunk, in input order.
func renderContext(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		sectionPath := chunk.SectionPath
		if len(sectionPath) == 0 {
			sectionPath = []string{"General"}
		}
		fmt.Fprintf(&b, "--- Context Chunk %d ---\n", i+1)
		fmt.Fprintf(&b, "Document: %s\n", chunk.DocumentName)
		fmt.Fprintf(&b, "Section: %s\n", strings.Join(sectionPath, " > "))
		fmt.Fprintf(&b, "Content: %s\n\n", chunk.Text)
	}
	return b.String()
}

func parseGeneratedAnswer(out string) (domain.GeneratedAnswer, error) {
	cleaned, err := repairJSON(out)
	if err != nil {
		return domain.GeneratedAnswer{}, err
	}

	var answer domain.GeneratedAnswer
	if err := json.Unmarshal([]byte(cleaned), &answer); err != nil {
		// Surface the cleaned string alongside the cause for diagnosis.
		return domain.GeneratedAnswer{}, domain.WrapError(domain.ErrMalformedJSON, "parse answer",
			fmt.Errorf("%w (cleaned: %s)", err, cleaned))
	}
	if answer.Clauses == nil {
		answer.Clauses = []domain.ClauseCitation{}
	}
	return answer, nil
}
