// Package attemptstore holds the ephemeral state of in-flight authorization
// attempts: the CSRF state token and the PKCE verifier, keyed by provider.
//
// The store is scoped to one client instance and follows a single-writer-
// then-single-reader discipline: the authorization URL builder writes an
// attempt, the token exchanger reads and deletes it, and session cleanup
// wipes it. At most one attempt per provider is tracked; beginning a second
// attempt for the same provider overwrites the first, whose callback will
// then fail state validation.
package attemptstore

import (
	"time"

	"github.com/saleslink/oauthflow/pkce"
)

// Attempt is the ephemeral record of one in-flight authorization attempt.
type Attempt struct {
	ID           string
	Provider     string
	State        string
	CodeVerifier string
	Method       pkce.Method
	CreatedAt    time.Time
}

// Store persists authorization attempts for the duration of one flow.
type Store interface {
	// Begin stores an attempt keyed by provider, replacing any pending
	// attempt for the same provider.
	Begin(provider string, attempt Attempt) error

	// ValidateAndConsume compares the candidate state against the pending
	// attempt for the provider. The pending attempt is removed whether or
	// not the comparison succeeds, so validation is single-shot: a replayed
	// state can never validate twice, and a never-issued state never
	// validates at all.
	ValidateAndConsume(provider, state string) (Attempt, bool)

	// Take removes and returns the pending attempt for a provider without
	// state validation. Used to consume a stored PKCE verifier when the
	// callback carried no state parameter.
	Take(provider string) (Attempt, bool)

	// Clear drops the pending attempt for a provider. Idempotent.
	Clear(provider string)

	// Reset drops every pending attempt. Idempotent.
	Reset()
}
