package launcher

// Message is the typed completion a callback delivers to an awaiting
// launcher. Platform names the provider the callback belongs to; a message
// whose platform differs from the initiating provider is discarded.
//
// A completion either carries the authorization code (Code/State, the normal
// path, triggering a token exchange) or, for callbacks that already performed
// the exchange elsewhere, the tokens themselves.
type Message struct {
	Platform string
	Success  bool

	// Authorization-code completion.
	Code  string
	State string

	// Direct token completion.
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresIn    int64

	// Failure payload.
	ErrorCode    string
	ErrorMessage string
}
