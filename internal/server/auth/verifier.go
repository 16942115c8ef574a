package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier computes and checks the stored login credential. It is
// independent of the client's encryption key derivation.
type PasswordVerifier interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

var ErrUnknownScheme = errors.New("unknown password scheme")

// NewPasswordVerifier selects a verifier by config name. An empty name is sha256.
func NewPasswordVerifier(scheme string) (PasswordVerifier, error) {
	switch scheme {
	case "", SchemeSHA256:
		return SHA256Verifier{}, nil
	case SchemeBcrypt:
		return BcryptVerifier{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// SHA256Verifier stores an unsalted hex SHA-256 digest. It is fast and
// offers no resistance to offline guessing; kept for compatibility with
// existing account data.
type SHA256Verifier struct{}

func (SHA256Verifier) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (v SHA256Verifier) Verify(stored, password string) bool {
	candidate, _ := v.Hash(password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// BcryptVerifier is the hardened scheme.
type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), v.Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (BcryptVerifier) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
