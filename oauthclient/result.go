package oauthclient

// Result is the normalized outcome of a successful token acquisition,
// whichever grant produced it. Lifetime of the access token begins at
// receipt; nothing here is persisted implicitly, the caller decides storage.
type Result struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64 // seconds, relative to issuance
	Scope        string
	RefreshToken string // empty for the client-credentials grant
	UserID       string
	PublicKey    string
	Principal    *Principal // populated on code exchange when the fetch succeeds
}

// Principal is the authenticated account record returned by the provider's
// user-info endpoint. Fetched fresh on demand, never cached.
type Principal struct {
	ID        string
	Nickname  string
	FirstName string
	LastName  string
	Email     string
	CountryID string
	Locale    string
}
