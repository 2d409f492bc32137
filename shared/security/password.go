package security

import (
	"errors"
	"strings"

	"github.com/matthewhartstonge/argon2"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

const encodedPrefix = "$argon2"

// Hasher hashes and verifies user passwords.
type Hasher interface {
	// Make returns the encoded hash of the plaintext password.
	Make(password string) (string, error)

	// Check reports whether the plaintext password matches the encoded hash.
	Check(password, hash string) (bool, error)
}

// Argon2Hasher implements Hasher using argon2id in PHC string format.
type Argon2Hasher struct {
	config argon2.Config
}

// NewArgon2Hasher creates a new Argon2Hasher with the library defaults.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{config: argon2.DefaultConfig()}
}

func (h *Argon2Hasher) Make(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

func (h *Argon2Hasher) Check(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}

	return argon2.VerifyEncoded([]byte(password), []byte(hash))
}

// IsHashed reports whether value already looks like an encoded argon2 hash.
func IsHashed(value string) bool {
	return strings.HasPrefix(value, encodedPrefix)
}
