package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// apiKeyBytes is the entropy of a generated ops API key; the key itself is hex encoded.
const apiKeyBytes = 32

// GenerateAPIKey creates a random ops API key and the bcrypt hash to configure as OPS_API_KEY_HASH.
// Only the hash is stored; the plain key is handed to the operator once.
func GenerateAPIKey() (key string, hash string, err error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	key = hex.EncodeToString(b)

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return key, string(hashed), nil
}

// CheckAPIKey compares a presented API key with a bcrypt hash.
func CheckAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
