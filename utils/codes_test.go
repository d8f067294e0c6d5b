package utils

import (
	"regexp"
	"testing"
)

var joinCodePattern = regexp.MustCompile(`^[0-9A-F]{6}$`)

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode() error: %v", err)
		}
		if !joinCodePattern.MatchString(code) {
			t.Fatalf("GenerateJoinCode() = %q, want 6 uppercase hex characters", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50", len(seen))
	}
}
