package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/sakif/coursemate/internal/apperror"
)

// newFakeGoogle spins up an httptest server that plays both Google
// endpoints: POST /token and GET /userinfo. The handlers are swappable per
// test so failure cases can be simulated.
func newFakeGoogle(t *testing.T, token, userinfo http.HandlerFunc) *GoogleProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", token)
	mux.HandleFunc("/userinfo", userinfo)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func okToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"access_token":"fake-access-token","token_type":"Bearer","expires_in":3600}`))
}

func TestGoogleExchange_HappyPath(t *testing.T) {
	p := newFakeGoogle(t, okToken, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fake-access-token" {
			t.Errorf("userinfo Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"sub": "g-123",
			"email": "alice@x.edu",
			"name": "Alice Smith",
			"picture": "https://lh3.example.com/alice.jpg"
		}`))
	})

	claims, err := p.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if claims.ExternalID != "g-123" {
		t.Errorf("ExternalID = %q, want %q", claims.ExternalID, "g-123")
	}
	if claims.Email != "alice@x.edu" {
		t.Errorf("Email = %q, want %q", claims.Email, "alice@x.edu")
	}
	if claims.FirstName != "Alice" || claims.LastName != "Smith" {
		t.Errorf("name = (%q, %q), want (Alice, Smith)", claims.FirstName, claims.LastName)
	}
	if claims.AvatarURL != "https://lh3.example.com/alice.jpg" {
		t.Errorf("AvatarURL = %q", claims.AvatarURL)
	}
}

func TestGoogleExchange_TokenEndpointFails(t *testing.T) {
	p := newFakeGoogle(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("userinfo should not be called when the token exchange fails")
		},
	)

	_, err := p.Exchange(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("Exchange() should fail when the token endpoint rejects the code")
	}
	if !errors.Is(err, apperror.ErrExchange) {
		t.Errorf("error = %v, want ErrExchange", err)
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindTokenExchangeFailed {
		t.Errorf("kind = %v, want token_exchange_failed", err)
	}
}

func TestGoogleExchange_UserInfoFails(t *testing.T) {
	p := newFakeGoogle(t, okToken, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := p.Exchange(context.Background(), "auth-code")
	if err == nil {
		t.Fatal("Exchange() should fail on a non-200 userinfo response")
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindUserInfoFetchFailed {
		t.Errorf("kind = %v, want user_info_fetch_failed", err)
	}
}

func TestGoogleAuthURL_CarriesState(t *testing.T) {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")

	url := p.AuthURL("state-xyz")
	if url == "" {
		t.Fatal("AuthURL() returned empty string")
	}
	// The state must round-trip through the consent URL for the CSRF check.
	if want := "state=state-xyz"; !strings.Contains(url, want) {
		t.Errorf("AuthURL() = %q, missing %q", url, want)
	}
}
