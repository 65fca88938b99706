package oauthclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const maxPrincipalBody = 1 << 20 // 1 MiB

// FetchPrincipal retrieves the authenticated account record from the
// provider's user-info endpoint. It never panics and never returns raw HTTP
// statuses: a non-2xx answer fails with CodeProfileFetchFailed, a transport
// or parse fault with CodeException.
func (c *Client) FetchPrincipal(ctx context.Context, accessToken string) (*Principal, error) {
	if accessToken == "" {
		return nil, NewError(CodeProfileFetchFailed, "access token is required")
	}

	resp, err := c.userInfoRequest(ctx, accessToken)
	if err != nil {
		return nil, NewError(CodeException, errors.Wrap(err, "[FetchPrincipal] user-info request").Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewError(CodeProfileFetchFailed, fmt.Sprintf("user-info endpoint answered %s", resp.Status))
	}

	var fields map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPrincipalBody)).Decode(&fields); err != nil {
		return nil, NewError(CodeException, errors.Wrap(err, "[FetchPrincipal] decoding user-info body").Error())
	}

	return principalFromFields(fields), nil
}

// IsTokenValid reports whether an access token is still accepted by the
// provider, established by a live round-trip to the user-info endpoint.
// Fail-closed: any transport error or non-2xx answer counts as invalid. An
// inability to confirm validity is never treated as proof of validity.
func (c *Client) IsTokenValid(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}
	resp, err := c.userInfoRequest(ctx, accessToken)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (c *Client) userInfoRequest(ctx context.Context, accessToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.provider.UserInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[userInfoRequest] building request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// principalFromFields normalizes the provider-specific user-info envelope.
// Providers disagree on field names (Mercado Pago: first_name/country_id,
// PayPal: given_name/locale, Meta and Twitter: name), so the common aliases
// are probed in order.
func principalFromFields(fields map[string]any) *Principal {
	// Twitter v2 nests the record under "data".
	if nested, ok := fields["data"].(map[string]any); ok {
		fields = nested
	}
	return &Principal{
		ID:        fieldString(fields, "id", "user_id", "sub"),
		Nickname:  fieldString(fields, "nickname", "username", "name"),
		FirstName: fieldString(fields, "first_name", "given_name"),
		LastName:  fieldString(fields, "last_name", "family_name"),
		Email:     fieldString(fields, "email"),
		CountryID: fieldString(fields, "country_id", "country"),
		Locale:    fieldString(fields, "locale", "site_id"),
	}
}

func fieldString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
