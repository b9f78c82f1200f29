package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateToken returns a URL-safe token used for patient status links
// and realtime channels. n is the number of random bytes.
func GenerateToken(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(byt), nil
}
