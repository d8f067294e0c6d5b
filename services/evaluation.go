package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Evaluation is the parsed form of an LLM scoring response.
type Evaluation struct {
	Score        int            `json:"score"`
	Badge        string         `json:"badge"`
	Dimensions   map[string]int `json:"dimensions"`
	Feedback     []string       `json:"feedback"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
}

// ZeroEvaluation is used whenever the collaborator fails or answers garbage.
func ZeroEvaluation() Evaluation {
	return Evaluation{Score: 0, Badge: BadgeNone, Dimensions: map[string]int{}}
}

var (
	codeFence  = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
)

var errNoJSON = errors.New("no JSON object in response")

// ParseEvaluation extracts the JSON object from raw model output, tolerating
// code fences and surrounding prose.
func ParseEvaluation(raw string) (Evaluation, error) {
	body := codeFence.ReplaceAllString(raw, "")
	body = jsonObject.FindString(body)
	if body == "" {
		return Evaluation{}, errNoJSON
	}
	if !gjson.Valid(body) {
		return Evaluation{}, fmt.Errorf("invalid JSON in response")
	}

	doc := gjson.Parse(body)
	score := doc.Get("score")
	if !score.Exists() {
		score = doc.Get("finalScore")
	}
	if !score.Exists() {
		return Evaluation{}, fmt.Errorf("response has no score")
	}

	ev := Evaluation{
		Score:        clampScore(int(score.Int())),
		Dimensions:   map[string]int{},
		Feedback:     stringList(doc.Get("feedback")),
		Strengths:    stringList(doc.Get("strengths")),
		Improvements: stringList(doc.Get("improvements")),
	}
	doc.Get("dimensions").ForEach(func(key, value gjson.Result) bool {
		ev.Dimensions[key.String()] = clampScore(int(value.Int()))
		return true
	})
	ev.Badge = BonusBadge(ev.Score)
	return ev, nil
}

// stringList accepts either a JSON array of strings or a single string.
func stringList(r gjson.Result) []string {
	if !r.Exists() {
		return nil
	}
	if !r.IsArray() {
		if s := strings.TrimSpace(r.String()); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

// Evaluate asks ev to score prompt. Upstream and parse failures are logged
// and replaced by ZeroEvaluation; this never returns an error.
func Evaluate(ctx context.Context, ev Evaluator, prompt string) Evaluation {
	if ev == nil {
		slog.Warn("[EVAL] no evaluator configured, using zero evaluation")
		return ZeroEvaluation()
	}
	raw, err := ev.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("[EVAL] evaluator failed", "err", UpstreamError(err, "llm completion"))
		return ZeroEvaluation()
	}
	parsed, err := ParseEvaluation(raw)
	if err != nil {
		slog.Warn("[EVAL] evaluator response unparsable", "err", UpstreamError(err, "llm response"))
		return ZeroEvaluation()
	}
	return parsed
}

// OutputLanguage normalizes a BCP 47 tag or an Accept-Language header into
// an English language name for prompts, defaulting to English.
func OutputLanguage(tag string) string {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		t = language.English
		if tags, _, aerr := language.ParseAcceptLanguage(tag); aerr == nil && len(tags) > 0 {
			t = tags[0]
		}
	}
	base, conf := t.Base()
	if conf == language.No {
		return "English"
	}
	return display.English.Languages().Name(language.Make(base.String()))
}

// BonusPrompt builds the scoring prompt for a bonus training response.
func BonusPrompt(title, scenario, response, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are evaluating an OKR training exercise titled %q.\n", title)
	fmt.Fprintf(&b, "Scenario:\n%s\n\n", scenario)
	fmt.Fprintf(&b, "Participant response:\n%s\n\n", response)
	b.WriteString("Score the response from 0 to 100 and reply with JSON only:\n")
	b.WriteString(`{"score": 0, "dimensions": {"clarity": 0, "alignment": 0, "measurability": 0, "ambition": 0}, "feedback": [], "strengths": [], "improvements": []}`)
	fmt.Fprintf(&b, "\nWrite all feedback in %s.", OutputLanguage(lang))
	return b.String()
}
