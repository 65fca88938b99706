package oauthclient

import "github.com/pkg/errors"

// Code classifies every failure this subsystem can surface. Callers switch on
// the code and never inspect raw HTTP statuses.
type Code string

const (
	// CodeMissingClientID: the client was built without a client ID.
	// Configuration error, never transient.
	CodeMissingClientID Code = "missing_client_id"
	// CodeMissingCredentials: a confidential grant was requested without
	// both client ID and secret. Configuration error, never transient.
	CodeMissingCredentials Code = "missing_credentials"
	// CodePopupBlocked: the authorization window could not be opened.
	CodePopupBlocked Code = "popup_blocked"
	// CodeInvalidState: the callback state did not match the issued one.
	// The whole flow must be restarted; state is single-use.
	CodeInvalidState Code = "invalid_state"
	// CodeUserCancelled: the user closed the authorization window or the
	// caller abandoned the attempt.
	CodeUserCancelled Code = "user_cancelled"
	// CodeTimeout: no completion arrived within the flow deadline.
	CodeTimeout Code = "timeout"
	// CodeTokenExchangeFailed: the provider rejected the code exchange.
	CodeTokenExchangeFailed Code = "token_exchange_failed"
	// CodeClientCredentialsFailed: the provider rejected the
	// client-credentials grant.
	CodeClientCredentialsFailed Code = "client_credentials_failed"
	// CodeRefreshTokenFailed: the provider rejected the refresh grant,
	// typically because the refresh token was rotated or revoked.
	CodeRefreshTokenFailed Code = "refresh_token_failed"
	// CodeProfileFetchFailed: the principal could not be fetched. Non-fatal
	// after a successful token exchange.
	CodeProfileFetchFailed Code = "profile_fetch_failed"
	// CodeException: transport or parse faults (network down, malformed
	// response body).
	CodeException Code = "exception"
)

// Error is the typed failure every public operation returns. Success and
// failure are distinguished by the error value alone, never by ad hoc fields
// on the result.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError builds a typed flow error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the flow code from an error, or empty when the error did
// not originate from this subsystem.
func CodeOf(err error) Code {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr.Code
	}
	return ""
}
