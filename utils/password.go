package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of the password. This is the canonical
// scheme for all newly stored credentials.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LegacyHash is the deterministic unsalted SHA-256 hex digest that credentials
// created before the bcrypt migration were stored with. Same input, same
// digest, so verification is recompute-and-compare.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword checks a plaintext password against a stored credential of
// either scheme. needsRehash is true when the stored credential is a legacy
// digest that should be rewritten as bcrypt after a successful login.
func VerifyPassword(stored, password string) (ok bool, needsRehash bool) {
	if strings.HasPrefix(stored, "$2") {
		return CheckPassword(stored, password), false
	}
	digest := LegacyHash(password)
	ok = subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1
	return ok, ok
}
