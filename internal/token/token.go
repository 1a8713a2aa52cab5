// Package token provides canary token value generation.
package token

import (
	"crypto/rand"
)

// 25 characters over a 36-symbol alphabet is just over 129 bits of
// randomness, so guessing a live token is infeasible.
const tokenLength = 25

var charset = []byte("abcdefghijklmnopqrstuvwxyz0123456789")

func Generate() (string, error) {
	b := make([]byte, tokenLength)
	randomBytes := make([]byte, tokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = charset[int(randomBytes[i])%len(charset)]
	}
	return string(b), nil
}
