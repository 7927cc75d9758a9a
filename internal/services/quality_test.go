package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type fakeEvalClient struct {
	result map[string]any
	err    error

	lastSystem string
	lastUser   string
}

func (f *fakeEvalClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.result, f.err
}

func TestAnalyzeHappyPath(t *testing.T) {
	ai := &fakeEvalClient{result: map[string]any{
		"delta":     float64(5),
		"category":  "good",
		"reasoning": "Playful callback to her earlier joke, well timed.",
	}}
	qe := NewQualityEvaluator(testLogger(t), ai)

	got := qe.Analyze(context.Background(), "ha, so the llama story has a sequel?", nil, EvalContext{PersonaName: "Maya", Meter: 40, TurnCount: 3})
	if got.Delta != 5 {
		t.Fatalf("Delta=%d, want 5", got.Delta)
	}
	if got.Category != types.CategoryGood {
		t.Fatalf("Category=%q, want good", got.Category)
	}
	if got.Reasoning != "Playful callback to her earlier joke, well timed." {
		t.Fatalf("Reasoning=%q", got.Reasoning)
	}
}

func TestAnalyzeFallsBackOnProviderError(t *testing.T) {
	ai := &fakeEvalClient{err: errors.New("timeout")}
	qe := NewQualityEvaluator(testLogger(t), ai)

	got := qe.Analyze(context.Background(), "hello", nil, EvalContext{})
	if got.Delta != 0 || got.Category != types.CategoryNeutral || got.Reasoning != "fallback" {
		t.Fatalf("fallback=%+v, want neutral", got)
	}
}

func TestSanitizeDelta(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int
	}{
		{name: "clamps_high", in: float64(20), want: 8},
		{name: "clamps_low", in: float64(-99), want: -8},
		{name: "rounds_nearest", in: float64(3.6), want: 4},
		{name: "rounds_half_away", in: float64(-2.5), want: -3},
		{name: "non_numeric_zero", in: "seven", want: 0},
		{name: "nil_zero", in: nil, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeDelta(tc.in); got != tc.want {
				t.Fatalf("sanitizeDelta(%v)=%d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeCategoryDerivesFromDelta(t *testing.T) {
	cases := []struct {
		delta int
		want  string
	}{
		{delta: 8, want: types.CategoryExcellent},
		{delta: 6, want: types.CategoryExcellent},
		{delta: 5, want: types.CategoryGood},
		{delta: 3, want: types.CategoryGood},
		{delta: 0, want: types.CategoryNeutral},
		{delta: -2, want: types.CategoryNeutral},
		{delta: -3, want: types.CategoryPoor},
		{delta: -5, want: types.CategoryPoor},
		{delta: -6, want: types.CategoryBad},
	}
	for _, tc := range cases {
		if got := sanitizeCategory("not-a-category", tc.delta); got != tc.want {
			t.Fatalf("sanitizeCategory(invalid, %d)=%q, want %q", tc.delta, got, tc.want)
		}
	}
	if got := sanitizeCategory("  GOOD ", 0); got != types.CategoryGood {
		t.Fatalf("valid category not normalized: %q", got)
	}
}

func TestSanitizeReasoning(t *testing.T) {
	if got := sanitizeReasoning("meh"); got != "No clear read on this message." {
		t.Fatalf("short reasoning not replaced: %q", got)
	}
	long := strings.Repeat("x", 300)
	got := sanitizeReasoning(long)
	if len(got) != 200 {
		t.Fatalf("long reasoning len=%d, want 200", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated reasoning missing ellipsis: %q", got[len(got)-5:])
	}
}

func TestSanitizeReasoningCountsRunes(t *testing.T) {
	// Nine runes but eighteen bytes: still below the minimum.
	if got := sanitizeReasoning(strings.Repeat("é", 9)); got != "No clear read on this message." {
		t.Fatalf("multi-byte short reasoning not replaced: %q", got)
	}

	long := strings.Repeat("é", 300)
	got := sanitizeReasoning(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Fatalf("truncated reasoning runes=%d, want 200", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated reasoning missing ellipsis")
	}
}

func TestCompetitorMentionBiasesPrompt(t *testing.T) {
	ai := &fakeEvalClient{result: map[string]any{"delta": float64(0), "category": "neutral", "reasoning": "A fairly flat response either way."}}
	qe := NewQualityEvaluator(testLogger(t), ai)

	qe.Analyze(context.Background(), "my tinder matches never reply either", nil, EvalContext{PersonaName: "Maya"})
	if !strings.Contains(ai.lastSystem, "another dating app") {
		t.Fatalf("competitor mention did not widen the prompt: %q", ai.lastSystem)
	}

	ai2 := &fakeEvalClient{result: map[string]any{"delta": float64(0), "category": "neutral", "reasoning": "A fairly flat response either way."}}
	qe2 := NewQualityEvaluator(testLogger(t), ai2)
	qe2.Analyze(context.Background(), "tell me about your weekend", nil, EvalContext{PersonaName: "Maya"})
	if strings.Contains(ai2.lastSystem, "another dating app") {
		t.Fatalf("clean message got the competitor bias: %q", ai2.lastSystem)
	}
}
