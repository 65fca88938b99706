// Package oauthclient implements a provider-agnostic OAuth 2.0 client:
// authorization-URL construction with CSRF state and PKCE, the
// authorization-code, client-credentials, and refresh-token grants, and the
// token/principal validation contract.
//
// Security: the client secret is only ever used inside the token-exchange
// calls. Those calls belong in a trusted backend context; embedding the
// secret in a publicly reachable execution context is a security defect of
// the deployment, not a supported configuration.
package oauthclient

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/saleslink/oauthflow/attemptstore"
	"github.com/saleslink/oauthflow/providers"
	"golang.org/x/oauth2"
)

// Config carries the credentials the embedding application supplies for one
// provider. Immutable per client instance.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Client is an OAuth 2.0 client bound to a single provider.
type Client struct {
	config     Config
	provider   providers.Provider
	attempts   attemptstore.Store
	httpClient *http.Client
	nowTime    func() time.Time // injectable for testing
}

// Option modifies a Client instance.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for token and user-info requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New initializes a Client for a provider. A nil store gets a fresh
// in-memory attempt store scoped to this client.
func New(config Config, provider providers.Provider, attempts attemptstore.Store, options ...Option) (*Client, error) {
	if provider.Name == "" {
		return nil, errors.New("[New] provider is required")
	}
	if provider.TokenURL == "" {
		return nil, errors.New("[New] provider token URL is required")
	}
	if attempts == nil {
		attempts = attemptstore.NewInMemoryStore(attemptstore.DefaultTTL)
	}

	client := &Client{
		config:     config,
		provider:   provider,
		attempts:   attempts,
		httpClient: http.DefaultClient,
		nowTime:    time.Now,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// Provider returns the provider this client is bound to.
func (c *Client) Provider() providers.Provider {
	return c.provider
}

// Reset clears the CSRF state and any pending PKCE verifier for this
// client's provider. Idempotent: resetting with nothing pending is a no-op.
func (c *Client) Reset() {
	c.attempts.Clear(c.provider.Name)
}

// oauth2Config assembles the x/oauth2 configuration for this client.
func (c *Client) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURI,
		Endpoint:     c.provider.Endpoint(),
		Scopes:       c.provider.Scopes,
	}
}
