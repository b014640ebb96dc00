package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey hashes a source-platform API key using bcrypt before storage.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckAPIKeyHash compares a plaintext API key with a stored bcrypt hash.
func CheckAPIKeyHash(apiKey, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil
}
