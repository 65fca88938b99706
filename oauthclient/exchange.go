package oauthclient

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ExchangeCode redeems an authorization code for tokens.
//
// When state is non-empty it is validated against, and consumed from, the
// attempt store before any network call; a mismatch fails with
// CodeInvalidState and no token request is ever sent. When usePKCE is set,
// the stored verifier travels as code_verifier; the verifier is cleared
// whether or not the exchange succeeds.
//
// A successful exchange is enriched with the principal from the user-info
// endpoint; failing to fetch the principal degrades the result (logged as
// profile_fetch_failed) but never downgrades it.
func (c *Client) ExchangeCode(ctx context.Context, code, state string, usePKCE bool) (*Result, error) {
	if c.config.ClientID == "" {
		return nil, NewError(CodeMissingClientID, "client ID is not configured")
	}
	if code == "" {
		return nil, NewError(CodeTokenExchangeFailed, "authorization code is required")
	}

	var verifier string
	if state != "" {
		attempt, ok := c.attempts.ValidateAndConsume(c.provider.Name, state)
		if !ok {
			return nil, NewError(CodeInvalidState, "state mismatch: the authorization flow must be restarted")
		}
		verifier = attempt.CodeVerifier
	} else if usePKCE {
		if attempt, ok := c.attempts.Take(c.provider.Name); ok {
			verifier = attempt.CodeVerifier
		}
	}

	var exchangeOptions []oauth2.AuthCodeOption
	if usePKCE && verifier != "" {
		exchangeOptions = append(exchangeOptions, oauth2.SetAuthURLParam("code_verifier", verifier))
	}

	token, err := c.oauth2Config().Exchange(c.requestContext(ctx), code, exchangeOptions...)
	if err != nil {
		return nil, grantError(err, CodeTokenExchangeFailed)
	}

	result := c.resultFromToken(token)

	principal, err := c.FetchPrincipal(ctx, token.AccessToken)
	if err != nil {
		log.Warn().
			Str("provider", c.provider.Name).
			Str("code", string(CodeProfileFetchFailed)).
			Err(err).
			Msg("token exchange succeeded but the principal could not be fetched")
	} else {
		result.Principal = principal
	}

	return result, nil
}

// ClientCredentials performs the client-credentials grant. The resulting
// token never carries a refresh token: these are short-lived machine
// identities that are re-requested, not refreshed.
func (c *Client) ClientCredentials(ctx context.Context) (*Result, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return nil, NewError(CodeMissingCredentials, "client ID and secret are both required")
	}

	conf := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     c.provider.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	token, err := conf.Token(c.requestContext(ctx))
	if err != nil {
		return nil, grantError(err, CodeClientCredentialsFailed)
	}

	result := c.resultFromToken(token)
	result.RefreshToken = ""
	return result, nil
}

// Refresh performs the refresh-token grant. When the provider rotates the
// refresh token the result carries the newest one and the caller must discard
// the old value; a stale token after rotation surfaces as
// CodeRefreshTokenFailed, never a silent retry.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return nil, NewError(CodeMissingCredentials, "client ID and secret are both required")
	}
	if refreshToken == "" {
		return nil, NewError(CodeRefreshTokenFailed, "refresh token is required")
	}

	source := c.oauth2Config().TokenSource(c.requestContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, grantError(err, CodeRefreshTokenFailed)
	}

	return c.resultFromToken(token), nil
}

// requestContext routes x/oauth2 transport through the configured HTTP client.
func (c *Client) requestContext(ctx context.Context) context.Context {
	if c.httpClient == nil || c.httpClient == http.DefaultClient {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// resultFromToken normalizes an x/oauth2 token into a Result.
func (c *Client) resultFromToken(token *oauth2.Token) *Result {
	expiresIn := token.ExpiresIn
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = int64(math.Round(token.Expiry.Sub(c.nowTime()).Seconds()))
	}
	return &Result{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresIn:    expiresIn,
		Scope:        extraString(token, "scope"),
		RefreshToken: token.RefreshToken,
		UserID:       extraString(token, "user_id"),
		PublicKey:    extraString(token, "public_key"),
	}
}

// grantError maps a token-endpoint failure onto the flow taxonomy: a
// provider-side rejection (or a body with no access token) gets the grant's
// failure code, transport and parse faults get CodeException.
func grantError(err error, failureCode Code) *Error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		message := retrieveErr.ErrorCode
		if retrieveErr.ErrorDescription != "" {
			message += ": " + retrieveErr.ErrorDescription
		}
		if message == "" {
			message = strings.TrimSpace(string(retrieveErr.Body))
		}
		if message == "" {
			message = retrieveErr.Response.Status
		}
		return NewError(failureCode, message)
	}
	if strings.Contains(err.Error(), "missing access_token") {
		return NewError(failureCode, "token endpoint returned no access token")
	}
	return NewError(CodeException, err.Error())
}

// extraString reads an extra token-response field that providers encode
// either as a string or a number (Mercado Pago returns user_id as a number).
func extraString(token *oauth2.Token, key string) string {
	switch v := token.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
