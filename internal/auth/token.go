// Package auth holds the credential primitives shared by the session and API
// key paths: id generation and password hashing.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrefix marks keys issued by this server.
const APIKeyPrefix = "ck_"

// NewSessionID returns an unguessable session identifier.
func NewSessionID() (string, error) {
	suffix, err := randomHex(16)
	if err != nil {
		return "", err
	}
	return uuid.NewString() + "-" + suffix, nil
}

func NewAPIKey() (string, error) {
	suffix, err := randomHex(16)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + suffix, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash. Bcrypt
// hashes and legacy unsalted SHA-256 hex digests are understood; any other
// stored value never matches.
func CheckPassword(stored, password string) bool {
	switch {
	case stored == "":
		return false
	case isBcrypt(stored):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	case isSHA256Hex(stored):
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(HashToken(password))) == 1
	default:
		return false
	}
}

// NeedsRehash is true for hashes that should be upgraded to bcrypt on the next
// successful sign-in.
func NeedsRehash(stored string) bool {
	return !isBcrypt(stored)
}

func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}

func isBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

func isSHA256Hex(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
