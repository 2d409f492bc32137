package security

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes is the entropy of tokens generated by RandomToken.
const TokenBytes = 32

// RandomToken returns n bytes from crypto/rand encoded as hex.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
