package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// JoinCodeBytes is the entropy of a challenge join code; it renders as 6 hex characters.
const JoinCodeBytes = 3

// GenerateJoinCode returns a random uppercase hex code such as "A3F09C".
func GenerateJoinCode() (string, error) {
	b := make([]byte, JoinCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
