package oauthclient

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/saleslink/oauthflow/attemptstore"
	"github.com/saleslink/oauthflow/pkce"
	"golang.org/x/oauth2"
)

const stateLength = 32

// AuthorizeOptions controls how an authorization URL is built.
type AuthorizeOptions struct {
	// UsePKCE attaches a code challenge to the request and stores the
	// verifier for the matching exchange. Forced on for providers that
	// mandate PKCE.
	UsePKCE bool

	// State overrides the generated CSRF state. Leave empty to have a fresh
	// one issued. Either way the state is persisted before the URL is
	// returned.
	State string
}

// AuthorizationRequest is a ready-to-open authorization URL with the state
// that will correlate its callback.
type AuthorizationRequest struct {
	URL   string
	State string
}

// BuildAuthorizationURL composes the provider authorization endpoint with
// client_id, response_type=code, redirect_uri, the CSRF state, and when PKCE
// is enabled the code challenge. The state (and, with PKCE, the verifier) is
// persisted in the attempt store before the URL is returned, replacing any
// attempt still in flight for this provider.
//
// It never builds a malformed URL: an incomplete configuration fails with
// CodeMissingClientID.
func (c *Client) BuildAuthorizationURL(opts AuthorizeOptions) (*AuthorizationRequest, error) {
	if c.config.ClientID == "" {
		return nil, NewError(CodeMissingClientID, "client ID is not configured")
	}

	state := opts.State
	if state == "" {
		generated, err := pkce.RandomString(stateLength)
		if err != nil {
			return nil, NewError(CodeException, errors.Wrap(err, "[BuildAuthorizationURL] generating state").Error())
		}
		state = generated
	}

	usePKCE := opts.UsePKCE || c.provider.RequirePKCE

	attempt := attemptstore.Attempt{
		ID:        uuid.New().String(),
		Provider:  c.provider.Name,
		State:     state,
		CreatedAt: c.nowTime(),
	}

	authCodeOptions := make([]oauth2.AuthCodeOption, 0, len(c.provider.ExtraAuthParams)+2)
	if usePKCE {
		pair, err := pkce.NewPair()
		if err != nil {
			return nil, NewError(CodeException, errors.Wrap(err, "[BuildAuthorizationURL] generating PKCE pair").Error())
		}
		attempt.CodeVerifier = pair.Verifier
		attempt.Method = pair.Method
		authCodeOptions = append(authCodeOptions,
			oauth2.SetAuthURLParam("code_challenge", pair.Challenge),
			oauth2.SetAuthURLParam("code_challenge_method", string(pair.Method)),
		)
	}
	for param, value := range c.provider.ExtraAuthParams {
		authCodeOptions = append(authCodeOptions, oauth2.SetAuthURLParam(param, value))
	}

	if err := c.attempts.Begin(c.provider.Name, attempt); err != nil {
		return nil, NewError(CodeException, errors.Wrap(err, "[BuildAuthorizationURL] persisting attempt").Error())
	}

	return &AuthorizationRequest{
		URL:   c.oauth2Config().AuthCodeURL(state, authCodeOptions...),
		State: state,
	}, nil
}
