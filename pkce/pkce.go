// Package pkce implements the Proof Key for Code Exchange primitives from
// RFC 7636: random verifier generation and the S256 challenge derivation.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
)

// unreservedCharset is the set of characters permitted in a code verifier
// (RFC 7636 §4.1).
const unreservedCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// VerifierLength is the length of generated code verifiers. RFC 7636 allows
// 43-128 characters; the maximum is used to maximise entropy.
const VerifierLength = 128

// Method identifies how a code challenge was derived from its verifier.
type Method string

const (
	// MethodS256 derives the challenge as BASE64URL(SHA256(verifier)).
	MethodS256 Method = "S256"
	// MethodPlain is the degraded fallback where challenge == verifier.
	MethodPlain Method = "plain"
)

// Pair is a verifier/challenge pair bound to a single authorization attempt.
// The verifier must be held until the matching token exchange consumes it,
// then destroyed.
type Pair struct {
	Verifier  string
	Challenge string
	Method    Method
}

// RandomString returns a string of exactly length characters, each drawn
// independently from the RFC 7636 unreserved character set using crypto/rand.
// It never falls back to a weaker source; a failing entropy source is an error.
func RandomString(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("[RandomString] length must be positive")
	}
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[RandomString] rand.Read")
	}
	out := make([]byte, length)
	for i, b := range bytes {
		out[i] = unreservedCharset[int(b)%len(unreservedCharset)]
	}
	return string(out), nil
}

// Challenge derives the S256 code challenge for a verifier: the URL-safe
// base64 encoding, without padding, of its SHA-256 digest (RFC 7636 §4.2).
// Pure and deterministic.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewPair generates a fresh S256 verifier/challenge pair.
func NewPair() (Pair, error) {
	verifier, err := RandomString(VerifierLength)
	if err != nil {
		return Pair{}, errors.Wrap(err, "[NewPair] RandomString")
	}
	return Pair{
		Verifier:  verifier,
		Challenge: Challenge(verifier),
		Method:    MethodS256,
	}, nil
}

// PlainPair generates a pair using the plain method, where the challenge is
// the verifier itself. Only for providers that do not support S256.
func PlainPair() (Pair, error) {
	verifier, err := RandomString(VerifierLength)
	if err != nil {
		return Pair{}, errors.Wrap(err, "[PlainPair] RandomString")
	}
	return Pair{
		Verifier:  verifier,
		Challenge: verifier,
		Method:    MethodPlain,
	}, nil
}
