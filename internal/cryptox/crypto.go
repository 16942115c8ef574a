// Package cryptox implements the client-side cryptography of GophChat:
// password-based key derivation and authenticated encryption of message
// bodies. Nothing in the server tree imports this package; the server only
// ever handles the opaque (ciphertext, iv) pairs produced here.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 work factor.
	KeyIterations = 100_000
	// KeySize is the derived key length (AES-256).
	KeySize = 32
	// SaltSize is the per-user salt length fixed at registration.
	SaltSize = 16
	// IVSize is the AES-GCM nonce length.
	IVSize = 12
	// TagSize is the AES-GCM authentication tag length appended to ciphertext.
	TagSize = 16
)

var (
	// ErrAuthenticationFailure is returned by Decrypt for any tampered,
	// truncated or otherwise malformed input. No plaintext accompanies it.
	ErrAuthenticationFailure = errors.New("authentication failure")

	ErrInvalidSalt = errors.New("salt must be 16 bytes")
	ErrInvalidKey  = errors.New("key must be 32 bytes")
)

// randReader is a seam for tests; production code always uses crypto/rand.
var randReader io.Reader = rand.Reader

// NewSalt returns SaltSize bytes from a cryptographically secure source.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches password with salt using PBKDF2-HMAC-SHA256
// (KeyIterations rounds) into a KeySize-byte key.
//
// The same (password, salt) pair always yields the same key. The only error
// is ErrInvalidSalt for a salt that is not exactly SaltSize bytes.
func DeriveKey(password, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, ErrInvalidSalt
	}
	return pbkdf2.Key(password, salt, KeyIterations, KeySize, sha256.New), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-256-GCM under key.
//
// A new random 12-byte IV is drawn for every call and returned next to the
// ciphertext, which carries the 16-byte tag at its end.
//
// Example:
//
//	key, _ := DeriveKey([]byte("pw"), salt)
//	ct, iv, err := Encrypt("hello", key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg, err := Decrypt(ct, iv, key)
func Encrypt(plaintext string, key []byte) (ciphertext, iv []byte, err error) {
	return EncryptBytes([]byte(plaintext), key)
}

// EncryptBytes is Encrypt for binary payloads such as attachments.
func EncryptBytes(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return nil, nil, fmt.Errorf("iv: %w", err)
	}

	return aead.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any failure, including a
// wrong key, is reported as ErrAuthenticationFailure.
func Decrypt(ciphertext, iv, key []byte) (string, error) {
	plain, err := DecryptBytes(ciphertext, iv, key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// DecryptBytes is Decrypt for binary payloads.
func DecryptBytes(ciphertext, iv, key []byte) ([]byte, error) {
	if len(iv) != IVSize || len(ciphertext) < TagSize {
		return nil, ErrAuthenticationFailure
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	plain, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return plain, nil
}
