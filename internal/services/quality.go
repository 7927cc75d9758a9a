package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

const (
	deltaMin = -8
	deltaMax = 8

	reasoningMinLen = 10
	reasoningMaxLen = 200
)

// QualityAnalysis is the validated verdict for one user message.
type QualityAnalysis struct {
	Delta     int    `json:"delta"`
	Category  string `json:"category"`
	Reasoning string `json:"reasoning"`
}

// EvalContext carries the round state the evaluator prompts with.
type EvalContext struct {
	PersonaName  string
	PersonaStyle string
	Meter        int
	TurnCount    int
}

type QualityEvaluator interface {
	// Analyze never fails in the hot path: any provider or payload problem
	// degrades to a neutral verdict.
	Analyze(ctx context.Context, userMessage string, history []*types.RoundMessage, ec EvalContext) *QualityAnalysis
}

// EvalClient is the structured-output slice of the AI client the evaluator
// needs.
type EvalClient interface {
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
}

type qualityEvaluator struct {
	log *logger.Logger
	ai  EvalClient
}

func NewQualityEvaluator(log *logger.Logger, ai EvalClient) QualityEvaluator {
	return &qualityEvaluator{log: log.With("service", "QualityEvaluator"), ai: ai}
}

var qualitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"delta":     map[string]any{"type": "integer", "minimum": -8, "maximum": 8},
		"category":  map[string]any{"type": "string", "enum": []string{"excellent", "good", "neutral", "poor", "bad"}},
		"reasoning": map[string]any{"type": "string"},
	},
	"required":             []string{"delta", "category", "reasoning"},
	"additionalProperties": false,
}

// Apps a practice partner might get unfavorably compared to. Mentioning one
// mid-conversation reads as checked-out, and the prompt says so.
var competitorMentions = []string{"tinder", "hinge", "bumble", "grindr", "okcupid"}

func (qe *qualityEvaluator) Analyze(ctx context.Context, userMessage string, history []*types.RoundMessage, ec EvalContext) *QualityAnalysis {
	system := qe.buildSystemPrompt(userMessage, ec)
	user := buildUserPrompt(userMessage, history)

	raw, err := qe.ai.GenerateJSON(ctx, system, user, "message_quality", qualitySchema)
	if err != nil {
		qe.log.Warn("quality evaluation failed, using neutral fallback", "error", err)
		return neutralFallback()
	}
	return sanitizeAnalysis(raw)
}

func (qe *qualityEvaluator) buildSystemPrompt(userMessage string, ec EvalContext) string {
	var sb strings.Builder
	sb.WriteString("You are scoring one message in a dating-conversation practice session. ")
	sb.WriteString(fmt.Sprintf("The user is chatting with %s (%s). ", ec.PersonaName, ec.PersonaStyle))
	sb.WriteString(fmt.Sprintf("The success meter is at %d/100 after %d turns. ", ec.Meter, ec.TurnCount))
	sb.WriteString("Rate how the message lands: delta from -8 (conversation killer) to +8 (genuinely charming), ")
	sb.WriteString("a category, and one short sentence of reasoning.")
	if mentionsCompetitor(userMessage) {
		sb.WriteString(" The message name-drops another dating app, which reads as disengaged; weigh that against it.")
	}
	return sb.String()
}

func buildUserPrompt(userMessage string, history []*types.RoundMessage) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Recent turns:\n")
		start := 0
		if len(history) > 6 {
			start = len(history) - 6
		}
		for _, m := range history[start:] {
			sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Message to score: ")
	sb.WriteString(userMessage)
	return sb.String()
}

func mentionsCompetitor(message string) bool {
	lower := strings.ToLower(message)
	for _, name := range competitorMentions {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

func neutralFallback() *QualityAnalysis {
	return &QualityAnalysis{Delta: 0, Category: types.CategoryNeutral, Reasoning: "fallback"}
}

// sanitizeAnalysis never trusts the provider payload: clamp, validate, and
// backfill every field.
func sanitizeAnalysis(raw map[string]any) *QualityAnalysis {
	delta := sanitizeDelta(raw["delta"])
	category := sanitizeCategory(raw["category"], delta)
	reasoning := sanitizeReasoning(raw["reasoning"])
	return &QualityAnalysis{Delta: delta, Category: category, Reasoning: reasoning}
}

func sanitizeDelta(v any) int {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	d := int(math.Round(f))
	if d < deltaMin {
		return deltaMin
	}
	if d > deltaMax {
		return deltaMax
	}
	return d
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

var validCategories = map[string]bool{
	types.CategoryExcellent: true,
	types.CategoryGood:      true,
	types.CategoryNeutral:   true,
	types.CategoryPoor:      true,
	types.CategoryBad:       true,
}

func sanitizeCategory(v any, delta int) string {
	if s, ok := v.(string); ok {
		s = strings.ToLower(strings.TrimSpace(s))
		if validCategories[s] {
			return s
		}
	}
	return categoryForDelta(delta)
}

func categoryForDelta(delta int) string {
	switch {
	case delta >= 6:
		return types.CategoryExcellent
	case delta >= 3:
		return types.CategoryGood
	case delta >= -2:
		return types.CategoryNeutral
	case delta >= -5:
		return types.CategoryPoor
	default:
		return types.CategoryBad
	}
}

// sanitizeReasoning bounds are in characters, not bytes; slicing by rune keeps
// multi-byte reasoning valid UTF-8 after truncation.
func sanitizeReasoning(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) < reasoningMinLen {
		return "No clear read on this message."
	}
	if len(runes) > reasoningMaxLen {
		return string(runes[:reasoningMaxLen-3]) + "..."
	}
	return s
}
