package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/coursemate/internal/apperror"
)

// defaultUserInfoURL is Google's OpenID Connect userinfo endpoint.
const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleUserInfo is the portion of the userinfo response we care about.
// Google returns more fields — we only unmarshal what the sync flow needs.
type googleUserInfo struct {
	Sub     string `json:"sub"`     // Google's stable user id
	Email   string `json:"email"`   // primary email
	Name    string `json:"name"`    // full display name, split by the caller
	Picture string `json:"picture"` // avatar URL
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code
// flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Our login endpoint hands the frontend Google's authorization URL.
// 2. The user approves on Google, which redirects back with a short-lived code.
// 3. Exchange() trades the code for an access token (server-to-server, using
//    the client secret) and then fetches the user's profile with that token.
//
// The token never reaches the browser; only the normalized Claims leave this
// adapter.
type GoogleProvider struct {
	config      *oauth2.Config
	client      *http.Client // bounded-timeout client for both outbound calls
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider with the given OAuth app
// credentials. callbackURL must exactly match the authorized redirect URI
// configured in the Google Cloud console.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"email", "profile"},
			Endpoint:     google.Endpoint,
		},
		// Both outbound calls must not hang past the request's patience.
		// A timed-out exchange surfaces as token_exchange_failed, a
		// timed-out userinfo fetch as user_info_fetch_failed.
		client:      &http.Client{Timeout: 10 * time.Second},
		userInfoURL: defaultUserInfoURL,
	}
}

// AuthURL returns the Google consent URL to redirect the user to. The state
// is a random value the callback handler verifies against a cookie to block
// CSRF'd callbacks.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange completes the OAuth flow: trades the authorization code for
// normalized identity claims.
//
// Failure taxonomy:
//   - code→token exchange fails (bad code, endpoint down, timeout)
//     → token_exchange_failed
//   - userinfo call fails or returns non-200 → user_info_fetch_failed
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Claims, error) {
	// oauth2 picks its HTTP client out of the context; this is how the
	// timeout (and the test server's client) gets plumbed through.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Exchange(apperror.KindTokenExchangeFailed,
			fmt.Sprintf("failed to obtain access token: %v", err))
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, apperror.Exchange(apperror.KindUserInfoFetchFailed,
			fmt.Sprintf("failed to get user info: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Exchange(apperror.KindUserInfoFetchFailed,
			fmt.Sprintf("userinfo endpoint returned status %d", resp.StatusCode))
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperror.Exchange(apperror.KindUserInfoFetchFailed,
			fmt.Sprintf("decoding userinfo response: %v", err))
	}

	first, last := SplitFullName(info.Name)
	return &Claims{
		ExternalID: info.Sub,
		Email:      info.Email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  info.Picture,
	}, nil
}
