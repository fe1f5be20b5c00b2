// Package credential hashes passwords and mints session tokens.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 100000
	KeyLength         = 32
	SaltLength        = 32
	TokenBytes        = 32
)

var ErrInvalidArgument = errors.New("credential: invalid argument")

// Hasher derives password hashes with PBKDF2-HMAC-SHA256.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher running the given number of iterations.
// Non-positive values fall back to DefaultIterations.
func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

func (h *Hasher) Iterations() int {
	return h.iterations
}

// HashSync derives the hash on the calling goroutine.
func (h *Hasher) HashSync(password, salt string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if salt == "" {
		return nil, fmt.Errorf("%w: salt is required", ErrInvalidArgument)
	}
	return pbkdf2.Key([]byte(password), []byte(salt), h.iterations, KeyLength, sha256.New), nil
}

// Hash derives the hash on a separate goroutine and returns early with the
// context error when ctx is done first.
func (h *Hasher) Hash(ctx context.Context, password, salt string) ([]byte, error) {
	if password == "" || salt == "" {
		return h.HashSync(password, salt)
	}

	type result struct {
		key []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		key, err := h.HashSync(password, salt)
		done <- result{key: key, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.key, r.err
	}
}

// Verify recomputes the hash of password and compares it with stored.
func (h *Hasher) Verify(ctx context.Context, password, salt string, stored []byte) (bool, error) {
	key, err := h.Hash(ctx, password, salt)
	if err != nil {
		return false, err
	}
	return Equal(key, stored), nil
}

// Equal compares two hashes in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateSalt returns length printable hex characters from crypto/rand.
func GenerateSalt(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("%w: salt length %d is negative", ErrInvalidArgument, length)
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("credential: read random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}

// GenerateToken returns TokenBytes random bytes, hex encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("credential: read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
