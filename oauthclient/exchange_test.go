package oauthclient_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/saleslink/oauthflow/oauthclient"
	"github.com/saleslink/oauthflow/pkce"
	"github.com/stretchr/testify/require"
)

func TestExchangeCodeEndToEnd(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	request, err := f.client.BuildAuthorizationURL(oauthclient.AuthorizeOptions{UsePKCE: true, State: "s1"})
	require.NoError(t, err)

	result, err := f.client.ExchangeCode(context.Background(), testAuthCode, request.State, true)
	require.NoError(t, err)
	require.Equal(t, testAccessToken, result.AccessToken)
	require.InDelta(t, 21600, result.ExpiresIn, 2)
	require.Equal(t, "refresh-1", result.RefreshToken)
	require.Equal(t, "123456", result.UserID)
	require.Equal(t, "APP_USR-key", result.PublicKey)
	require.NotNil(t, result.Principal)
	require.Equal(t, "JDOE", result.Principal.Nickname)
	require.Equal(t, "john.doe@example.com", result.Principal.Email)

	form := f.tokenForm()
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, testAuthCode, form.Get("code"))
	require.Equal(t, testRedirectURI, form.Get("redirect_uri"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))
	require.NotEmpty(t, form.Get("code_verifier"))

	// The state and verifier stores are empty afterwards.
	_, ok := f.store.ValidateAndConsume(testProviderName, request.State)
	require.False(t, ok)
	_, ok = f.store.Take(testProviderName)
	require.False(t, ok)
}

func TestExchangeCodeSendsTheStoredVerifier(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	request, err := f.client.BuildAuthorizationURL(oauthclient.AuthorizeOptions{UsePKCE: true})
	require.NoError(t, err)

	challenge := authURLChallenge(t, request.URL)

	_, err = f.client.ExchangeCode(context.Background(), testAuthCode, request.State, true)
	require.NoError(t, err)

	// The verifier presented during exchange is the one whose challenge was
	// sent in the authorization URL.
	require.Equal(t, challenge, pkce.Challenge(f.tokenForm().Get("code_verifier")))
}

func TestExchangeCodeStateMismatchNeverCallsTheNetwork(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	_, err := f.client.BuildAuthorizationURL(oauthclient.AuthorizeOptions{UsePKCE: true, State: "s1"})
	require.NoError(t, err)

	_, err = f.client.ExchangeCode(context.Background(), testAuthCode, "attacker-state", true)
	require.Error(t, err)
	require.Equal(t, oauthclient.CodeInvalidState, oauthclient.CodeOf(err))
	require.Equal(t, 0, f.tokenCallCount())
}

func TestExchangeCodeStateIsSingleUse(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	request, err := f.client.BuildAuthorizationURL(oauthclient.AuthorizeOptions{State: "s1"})
	require.NoError(t, err)

	_, err = f.client.ExchangeCode(context.Background(), testAuthCode, request.State, false)
	require.NoError(t, err)

	// Replaying the captured callback fails without a network call.
	calls := f.tokenCallCount()
	_, err = f.client.ExchangeCode(context.Background(), testAuthCode, request.State, false)
	require.Equal(t, oauthclient.CodeInvalidState, oauthclient.CodeOf(err))
	require.Equal(t, calls, f.tokenCallCount())
}

func TestExchangeCodeWithoutStateConsumesPendingVerifier(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	_, err := f.client.BuildAuthorizationURL(oauthclient.AuthorizeOptions{UsePKCE: true})
	require.NoError(t, err)

	_, err = f.client.ExchangeCode(context.Background(), testAuthCode, "", true)
	require.NoError(t, err)
	require.NotEmpty(t, f.tokenForm().Get("code_verifier"))

	// Consumed unconditionally.
	_, ok := f.store.Take(testProviderName)
	require.False(t, ok)
}

func TestExchangeCodeVerifierClearedEvenWhenExchangeFails(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setTokenHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "authorization code expired",
		})
	})

	request, err := f.client.BuildAuthorizationURL(oauthclient.AuthorizeOptions{UsePKCE: true})
	require.NoError(t, err)

	_, err = f.client.ExchangeCode(context.Background(), testAuthCode, request.State, true)
	require.Equal(t, oauthclient.CodeTokenExchangeFailed, oauthclient.CodeOf(err))

	_, ok := f.store.Take(testProviderName)
	require.False(t, ok)
}

func TestExchangeCodeProviderRejection(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setTokenHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "bad code",
		})
	})

	_, err := f.client.ExchangeCode(context.Background(), testAuthCode, "", false)
	require.Error(t, err)
	require.Equal(t, oauthclient.CodeTokenExchangeFailed, oauthclient.CodeOf(err))
	require.Contains(t, err.Error(), "invalid_grant")
}

func TestExchangeCodeMissingAccessTokenIsAProviderFailure(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setTokenHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token_type": "bearer"})
	})

	_, err := f.client.ExchangeCode(context.Background(), testAuthCode, "", false)
	require.Equal(t, oauthclient.CodeTokenExchangeFailed, oauthclient.CodeOf(err))
}

func TestExchangeCodeTransportFaultIsAnException(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.server.Close()

	_, err := f.client.ExchangeCode(context.Background(), testAuthCode, "", false)
	require.Error(t, err)
	require.Equal(t, oauthclient.CodeException, oauthclient.CodeOf(err))
}

func TestExchangeCodePrincipalFailureDoesNotDowngrade(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setUserInfoHandler(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	result, err := f.client.ExchangeCode(context.Background(), testAuthCode, "", false)
	require.NoError(t, err)
	require.Equal(t, testAccessToken, result.AccessToken)
	require.Nil(t, result.Principal)
}

func TestExchangeCodeRequiresCode(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	_, err := f.client.ExchangeCode(context.Background(), "", "", false)
	require.Error(t, err)
	require.Equal(t, 0, f.tokenCallCount())
}

func TestClientCredentials(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())

	result, err := f.client.ClientCredentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAccessToken, result.AccessToken)

	// Machine identities are re-requested, never refreshed: the refresh
	// token is stripped even when the provider returns one.
	require.Empty(t, result.RefreshToken)

	form := f.tokenForm()
	require.Equal(t, "client_credentials", form.Get("grant_type"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))
}

func TestClientCredentialsRequiresBothCredentials(t *testing.T) {
	for _, config := range []oauthclient.Config{
		{ClientID: testClientID},
		{ClientSecret: testClientSecret},
		{},
	} {
		f := setupTestFixture(t, config)

		_, err := f.client.ClientCredentials(context.Background())
		require.Error(t, err)
		require.Equal(t, oauthclient.CodeMissingCredentials, oauthclient.CodeOf(err))
		require.Equal(t, 0, f.tokenCallCount())
	}
}

func TestClientCredentialsProviderRejection(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setTokenHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
	})

	_, err := f.client.ClientCredentials(context.Background())
	require.Equal(t, oauthclient.CodeClientCredentialsFailed, oauthclient.CodeOf(err))
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setTokenHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "tok-2",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-2",
		})
	})

	result, err := f.client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "tok-2", result.AccessToken)

	// The provider rotated the refresh token; the newest one is surfaced.
	require.Equal(t, "refresh-2", result.RefreshToken)

	form := f.tokenForm()
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "refresh-1", form.Get("refresh_token"))
}

func TestRefreshStaleTokenAfterRotation(t *testing.T) {
	f := setupTestFixture(t, defaultConfig())
	f.setTokenHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	})

	_, err := f.client.Refresh(context.Background(), "stale-refresh")
	require.Error(t, err)
	require.Equal(t, oauthclient.CodeRefreshTokenFailed, oauthclient.CodeOf(err))

	// Exactly one token request: the failure is surfaced, never retried.
	require.Equal(t, 1, f.tokenCallCount())
}

func TestRefreshRequiresCredentialsAndToken(t *testing.T) {
	f := setupTestFixture(t, oauthclient.Config{ClientID: testClientID})
	_, err := f.client.Refresh(context.Background(), "refresh-1")
	require.Equal(t, oauthclient.CodeMissingCredentials, oauthclient.CodeOf(err))

	f = setupTestFixture(t, defaultConfig())
	_, err = f.client.Refresh(context.Background(), "")
	require.Equal(t, oauthclient.CodeRefreshTokenFailed, oauthclient.CodeOf(err))
	require.Equal(t, 0, f.tokenCallCount())
}

func authURLChallenge(t *testing.T, authURL string) string {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	challenge := parsed.Query().Get("code_challenge")
	require.NotEmpty(t, challenge)
	return challenge
}
