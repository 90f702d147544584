package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier turns a password into its stored form and checks
// candidates against it.
type CredentialVerifier interface {
	Encode(password string) (string, error)
	Verify(stored, candidate string) bool
}

// PlaintextVerifier stores the password as given and compares exactly,
// case-sensitively. It is an insecure placeholder kept for parity with
// existing namespaces.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Encode(password string) (string, error) {
	return password, nil
}

func (PlaintextVerifier) Verify(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// BcryptVerifier hashes passwords with the configured cost.
type BcryptVerifier struct {
	Cost int
}

func (b BcryptVerifier) Encode(password string) (string, error) {
	return HashPassword(password, b.Cost)
}

func (b BcryptVerifier) Verify(stored, candidate string) bool {
	return ComparePassword(stored, candidate) == nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	if hashed == "" {
		return errors.New("empty hash")
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), bcryptInput(plain))
}

// bcrypt rejects inputs longer than 72 bytes.
const bcryptMaxBytes = 72

// bcryptInput passes short passwords through and reduces longer ones to the
// base64 of their SHA-256, so every byte of a long password still counts.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxBytes {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
