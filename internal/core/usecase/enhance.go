package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/core/prompt"
)

var (
	errMissingIntent   = errors.New("missing required field: intent")
	errMissingEntities = errors.New("missing required field: entities")
)

const (
	enhanceTemperature     = 0.1
	enhanceMaxOutputTokens = 512
)

// Enhancer turns a raw question into a structured query with a fixed
// few-shot prompt. It never fails outward: anything that goes wrong inside
// degrades to domain.FallbackQuery so the retriever always gets usable input.
type Enhancer struct {
	generator ports.TextGenerator
	prompts   *prompt.Library
	logger    *slog.Logger
}

func NewEnhancer(generator ports.TextGenerator, prompts *prompt.Library, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

func (e *Enhancer) Enhance(ctx context.Context, rawQuery string) domain.EnhancedQuery {
	out, err := e.generator.Generate(ctx, e.prompts.EnhancerPrompt(rawQuery), ports.GenerationParams{
		Temperature:     enhanceTemperature,
		MaxOutputTokens: enhanceMaxOutputTokens,
	})
	if err != nil {
		e.logger.Warn("query_enhance_fallback", "reason", "generate", "error", err, "query", rawQuery)
		return domain.FallbackQuery(rawQuery)
	}

	enhanced, err := parseEnhancedQuery(out)
	if err != nil {
		e.logger.Warn("query_enhance_fallback", "reason", "parse", "error", err, "query", rawQuery)
		return domain.FallbackQuery(rawQuery)
	}

	// The raw query is an invariant regardless of what the model echoed.
	enhanced.RawQuery = rawQuery
	return enhanced
}

func parseEnhancedQuery(out string) (domain.EnhancedQuery, error) {
	span, err := extractJSONSpan(out)
	if err != nil {
		return domain.EnhancedQuery{}, err
	}
	span = stripTrailingCommas(span)

	var enhanced domain.EnhancedQuery
	if err := json.Unmarshal([]byte(span), &enhanced); err != nil {
		return domain.EnhancedQuery{}, domain.WrapError(domain.ErrMalformedJSON, "parse enhanced query", err)
	}
	if err := validateEnhancedQuery(enhanced); err != nil {
		return domain.EnhancedQuery{}, err
	}
	return enhanced, nil
}

func validateEnhancedQuery(q domain.EnhancedQuery) error {
	if strings.TrimSpace(q.Intent) == "" {
		return domain.WrapError(domain.ErrMalformedJSON, "validate enhanced query", errMissingIntent)
	}
	hasEntity := false
	for _, entity := range q.Entities {
		if strings.TrimSpace(entity) != "" {
			hasEntity = true
			break
		}
	}
	if !hasEntity {
		return domain.WrapError(domain.ErrMalformedJSON, "validate enhanced query", errMissingEntities)
	}
	return nil
}
