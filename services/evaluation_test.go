package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubEvaluator struct {
	reply  string
	err    error
	prompt string
}

func (s *stubEvaluator) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestParseEvaluation(t *testing.T) {
	raw := "Here is my assessment:\n```json\n" +
		`{"score": 92, "dimensions": {"clarity": 95, "alignment": 140}, "feedback": ["Clear objective"], "strengths": "Measurable", "improvements": []}` +
		"\n```\nGood luck!"

	ev, err := ParseEvaluation(raw)
	if err != nil {
		t.Fatalf("ParseEvaluation() error: %v", err)
	}
	if ev.Score != 92 || ev.Badge != BadgeGold {
		t.Errorf("score/badge = %d/%s, want 92/Gold", ev.Score, ev.Badge)
	}
	if ev.Dimensions["clarity"] != 95 || ev.Dimensions["alignment"] != 100 {
		t.Errorf("Dimensions = %v, want clarity 95 and alignment clamped to 100", ev.Dimensions)
	}
	if len(ev.Feedback) != 1 || ev.Feedback[0] != "Clear objective" {
		t.Errorf("Feedback = %v", ev.Feedback)
	}
	if len(ev.Strengths) != 1 || ev.Strengths[0] != "Measurable" {
		t.Errorf("Strengths = %v, want single string promoted to list", ev.Strengths)
	}
	if len(ev.Improvements) != 0 {
		t.Errorf("Improvements = %v, want empty", ev.Improvements)
	}
}

func TestParseEvaluationFailures(t *testing.T) {
	tests := map[string]string{
		"no json":    "I cannot score this.",
		"broken":     `{"score": 40,`,
		"no score":   `{"feedback": ["ok"]}`,
		"only fence": "```json\n```",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEvaluation(raw); err == nil {
				t.Errorf("ParseEvaluation(%q) error = nil, want failure", raw)
			}
		})
	}
}

func TestParseEvaluationFinalScoreAlias(t *testing.T) {
	ev, err := ParseEvaluation(`{"finalScore": 61}`)
	if err != nil {
		t.Fatalf("ParseEvaluation() error: %v", err)
	}
	if ev.Score != 61 || ev.Badge != BadgeBronze {
		t.Errorf("score/badge = %d/%s, want 61/Bronze", ev.Score, ev.Badge)
	}
}

func TestEvaluateFallsBackToZero(t *testing.T) {
	ctx := context.Background()
	zero := ZeroEvaluation()

	tests := []struct {
		name string
		ev   Evaluator
	}{
		{"nil evaluator", nil},
		{"upstream error", &stubEvaluator{err: errors.New("503")}},
		{"garbage", &stubEvaluator{reply: "no idea"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(ctx, tt.ev, "prompt")
			if got.Score != zero.Score || got.Badge != zero.Badge {
				t.Errorf("Evaluate() = %+v, want zero evaluation", got)
			}
		})
	}
}

func TestOutputLanguage(t *testing.T) {
	tests := map[string]string{
		"fr":    "French",
		"de-CH": "German",
		"pt-BR,pt;q=0.9,en;q=0.8": "Portuguese",
		"":      "English",
		"!!":    "English",
	}
	for tag, want := range tests {
		if got := OutputLanguage(tag); got != want {
			t.Errorf("OutputLanguage(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestBonusPrompt(t *testing.T) {
	p := BonusPrompt("Churn", "Customers leave", "Cut churn to 2%", "es")
	for _, want := range []string{`"Churn"`, "Customers leave", "Cut churn to 2%", "Spanish"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}
