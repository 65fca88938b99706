package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/saleslink/oauthflow/oauthclient"
)

// OAuthConfig supplies per-provider credentials and the flow timings. The
// client secret must only reach token-exchange calls running in a trusted
// backend context; it is never embedded in authorization URLs.
type OAuthConfig interface {
	// GetClientConfig reads OAUTH_<PROVIDER>_CLIENT_ID, _CLIENT_SECRET and
	// _REDIRECT_URI for a provider name.
	GetClientConfig(provider string) oauthclient.Config
	GetFlowTimeout() time.Duration
	GetAttemptTTL() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientConfig(provider string) oauthclient.Config {
	prefix := fmt.Sprintf("OAUTH_%s_", strings.ToUpper(provider))
	return oauthclient.Config{
		ClientID:     GetEnv(prefix+"CLIENT_ID", ""),
		ClientSecret: GetEnv(prefix+"CLIENT_SECRET", ""),
		RedirectURI:  GetEnv(prefix+"REDIRECT_URI", ""),
	}
}

func (OAuth) GetFlowTimeout() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetAttemptTTL() time.Duration {
	return 10 * time.Minute
}
