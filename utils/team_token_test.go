package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTeamTokenRoundTrip(t *testing.T) {
	secret := []byte("team-secret")
	token, err := SignTeamToken(secret, "team-1", time.Hour)
	if err != nil {
		t.Fatalf("SignTeamToken() error: %v", err)
	}
	id, err := ParseTeamToken(secret, token)
	if err != nil {
		t.Fatalf("ParseTeamToken() error: %v", err)
	}
	if id != "team-1" {
		t.Errorf("team id = %q, want team-1", id)
	}
}

func TestParseTeamTokenRejects(t *testing.T) {
	secret := []byte("team-secret")

	expired, err := SignTeamToken(secret, "team-1", -time.Minute)
	if err != nil {
		t.Fatalf("SignTeamToken() error: %v", err)
	}
	forged, err := SignTeamToken([]byte("other"), "team-1", time.Hour)
	if err != nil {
		t.Fatalf("SignTeamToken() error: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, TeamClaims{TeamID: "team-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	noTeam, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TeamClaims{}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign empty: %v", err)
	}

	tests := map[string]string{
		"expired":  expired,
		"forged":   forged,
		"alg none": none,
		"no team":  noTeam,
		"garbage":  "not.a.token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTeamToken(secret, raw); err == nil {
				t.Errorf("ParseTeamToken(%s) error = nil, want rejection", name)
			}
		})
	}
}
