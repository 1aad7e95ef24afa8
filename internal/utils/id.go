package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureToken creates a cryptographically secure random token.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateInviteCode creates a short join code of the given length. The
// alphabet skips easily-confused characters.
func GenerateInviteCode(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, length)
	for i, v := range b {
		code[i] = inviteCodeAlphabet[int(v)%len(inviteCodeAlphabet)]
	}
	return string(code), nil
}
