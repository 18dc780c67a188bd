package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/coursemate/internal/apperror"
)

// SupabaseClient talks to a Supabase project's auth API (GoTrue).
//
// Supabase sits between us and Google: it runs the OAuth dance itself and
// hands the frontend an authorization code. We exchange that code for a
// session server-side using the service-role key — a privileged credential,
// which is why this call happens here and never in the browser.
//
// There is no official Supabase client for Go; the exchange is a single
// authenticated POST, handled the same way the Google adapter does its
// userinfo fetch.
type SupabaseClient struct {
	baseURL    string
	apiKey     string // anon key, sent as the apikey header
	serviceKey string // service-role key, authorizes the admin exchange
	client     *http.Client
}

// NewSupabaseClient creates a client for the given Supabase project.
// baseURL is the project URL, e.g. "https://abcdefgh.supabase.co".
func NewSupabaseClient(baseURL, apiKey, serviceKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL is where the frontend sends the user to start the Supabase-
// hosted Google login. The post-login redirect target is configured in the
// Supabase project settings, not here.
func (c *SupabaseClient) AuthorizeURL(provider string) string {
	return fmt.Sprintf("%s/auth/v1/authorize?provider=%s", c.baseURL, provider)
}

// supabaseIdentity is one linked provider identity on a Supabase user.
// identity_data carries the raw provider profile.
type supabaseIdentity struct {
	ProviderID   string `json:"provider_id"` // the provider's user id (Google "sub")
	Provider     string `json:"provider"`
	IdentityData struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"identity_data"`
}

type supabaseUser struct {
	ID         string             `json:"id"`
	Email      string             `json:"email"`
	Identities []supabaseIdentity `json:"identities"`
}

// sessionResponse is the GoTrue exchange response. Session stays raw: we
// return it to the frontend exactly as Supabase produced it and never look
// inside.
type sessionResponse struct {
	User    *supabaseUser   `json:"user"`
	Session json.RawMessage `json:"session"`
}

// ExchangeSession trades a Supabase authorization code for the user's
// identity claims plus the opaque session object.
//
// Failure taxonomy:
//   - HTTP error, non-2xx, undecodable body, or a response with no user
//     → session_exchange_failed
//   - a user with no linked identities → missing_identity (we need the
//     provider_id from the first identity to key the local profile)
func (c *SupabaseClient) ExchangeSession(ctx context.Context, code string) (*Claims, json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"auth_code": code})
	if err != nil {
		return nil, nil, fmt.Errorf("auth: encoding exchange request: %w", err)
	}

	url := c.baseURL + "/auth/v1/token?grant_type=authorization_code"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("auth: building exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, apperror.Exchange(apperror.KindSessionExchangeFailed,
			fmt.Sprintf("session exchange failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, apperror.Exchange(apperror.KindSessionExchangeFailed,
			fmt.Sprintf("session exchange returned status %d", resp.StatusCode))
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, nil, apperror.Exchange(apperror.KindSessionExchangeFailed,
			fmt.Sprintf("decoding session response: %v", err))
	}
	if sr.User == nil {
		return nil, nil, apperror.Exchange(apperror.KindSessionExchangeFailed,
			"session exchange returned no user")
	}
	if len(sr.User.Identities) == 0 {
		return nil, nil, apperror.Exchange(apperror.KindMissingIdentity,
			"user has no linked identities")
	}

	// The first identity is the one that just logged in. Its provider_id is
	// the Google user id Supabase mirrored for us.
	identity := sr.User.Identities[0]
	first, last := SplitFullName(identity.IdentityData.FullName)

	return &Claims{
		ExternalID: identity.ProviderID,
		Email:      sr.User.Email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  identity.IdentityData.AvatarURL,
	}, sr.Session, nil
}
