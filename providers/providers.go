// Package providers defines the endpoint sets for the OAuth providers the
// application integrates with. Variant behavior between providers (extra
// authorization parameters, mandatory PKCE, scopes) is expressed here as
// data; the client itself is provider-agnostic.
package providers

import (
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Provider describes one OAuth 2.0 provider's endpoints and quirks.
type Provider struct {
	Name        string
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	Scopes      []string

	// ExtraAuthParams are provider-specific query parameters appended to
	// every authorization URL (e.g. Meta's display=popup).
	ExtraAuthParams map[string]string

	// RequirePKCE marks providers that reject authorization requests
	// without a code challenge.
	RequirePKCE bool
}

// Endpoint returns the provider's oauth2 endpoint. Credentials travel in the
// request body, matching the token endpoints of every integrated provider.
func (p Provider) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   p.AuthURL,
		TokenURL:  p.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// MercadoPago returns the Mercado Pago endpoint set.
func MercadoPago() Provider {
	return Provider{
		Name:        "mercadopago",
		AuthURL:     "https://auth.mercadopago.com/authorization",
		TokenURL:    "https://api.mercadopago.com/oauth/token",
		UserInfoURL: "https://api.mercadopago.com/users/me",
		Scopes:      []string{"offline_access", "read", "write"},
	}
}

// PayPal returns the PayPal endpoint set.
func PayPal() Provider {
	return Provider{
		Name:        "paypal",
		AuthURL:     "https://www.paypal.com/signin/authorize",
		TokenURL:    "https://api-m.paypal.com/v1/oauth2/token",
		UserInfoURL: "https://api-m.paypal.com/v1/identity/openidconnect/userinfo?schema=openid",
		Scopes:      []string{"openid", "profile", "email"},
	}
}

// Meta returns the Facebook/Instagram endpoint set.
func Meta() Provider {
	return Provider{
		Name:        "meta",
		AuthURL:     "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:    "https://graph.facebook.com/v19.0/oauth/access_token",
		UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		Scopes:      []string{"public_profile", "email", "instagram_basic"},
		ExtraAuthParams: map[string]string{
			"display": "popup",
		},
	}
}

// Twitter returns the X/Twitter endpoint set. Twitter's v2 endpoints refuse
// authorization requests without PKCE.
func Twitter() Provider {
	return Provider{
		Name:        "twitter",
		AuthURL:     "https://twitter.com/i/oauth2/authorize",
		TokenURL:    "https://api.twitter.com/2/oauth2/token",
		UserInfoURL: "https://api.twitter.com/2/users/me",
		Scopes:      []string{"tweet.read", "users.read", "offline.access"},
		RequirePKCE: true,
	}
}

// ByName resolves a provider from its name.
func ByName(name string) (Provider, error) {
	switch name {
	case "mercadopago":
		return MercadoPago(), nil
	case "paypal":
		return PayPal(), nil
	case "meta", "facebook", "instagram":
		return Meta(), nil
	case "twitter", "x":
		return Twitter(), nil
	}
	return Provider{}, errors.Errorf("[ByName] unknown provider %q", name)
}

// All returns every configured provider.
func All() []Provider {
	return []Provider{MercadoPago(), PayPal(), Meta(), Twitter()}
}
