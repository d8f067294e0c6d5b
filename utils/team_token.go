package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TeamClaims is the payload of a team join link.
type TeamClaims struct {
	TeamID string `json:"team_id"`
	jwt.RegisteredClaims
}

func SignTeamToken(secret []byte, teamID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TeamClaims{
		TeamID: teamID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teamID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseTeamToken verifies the signature and expiry and returns the team id.
func ParseTeamToken(secret []byte, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &TeamClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*TeamClaims)
	if !ok || !token.Valid || claims.TeamID == "" {
		return "", errors.New("invalid team token")
	}
	return claims.TeamID, nil
}
