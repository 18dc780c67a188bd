package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coursemate/internal/auth"
	"github.com/sakif/coursemate/internal/handler"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository/sqlite"
	"github.com/sakif/coursemate/internal/service"
)

const supabaseTestSecret = "supabase-test-secret-32-chars!!!"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testStack bundles the handler under test with the live pieces behind it.
// The store is a throwaway in-memory SQLite database, so these tests exercise
// the full path from HTTP body to committed row.
type testStack struct {
	auth   *handler.AuthHandler
	tokens *auth.TokenService
	db     *sqlite.DB
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	bearer, err := auth.NewBearerParser(supabaseTestSecret, false)
	require.NoError(t, err)

	logger := testLogger()
	sync := service.NewSyncService(db.Users(), logger)

	h := handler.NewAuthHandler(
		auth.NewGoogleProvider("cid", "csecret", "http://localhost:8080/cb"),
		auth.NewSupabaseClient("http://localhost:9999", "anon", "service"),
		bearer,
		tokens,
		sync,
		logger,
		"http://localhost:3000",
		false,
	)
	return &testStack{auth: h, tokens: tokens, db: db}
}

// signSupabaseToken mints an HS256 token the way Supabase signs its access
// tokens, with the given subject.
func signSupabaseToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(supabaseTestSecret))
	require.NoError(t, err)
	return signed
}

func postSyncUser(t *testing.T, stack *testStack, body string, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/sync-user", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	stack.auth.HandleSyncUser(rr, req)
	return rr
}

func TestHandleSyncUser(t *testing.T) {
	t.Run("raw claims create a user", func(t *testing.T) {
		stack := newTestStack(t)

		rr := postSyncUser(t, stack, `{
			"external_id": "g-123",
			"email": "alice@x.edu",
			"full_name": "Alice Smith",
			"avatar_url": "https://lh3.example/a.png"
		}`, "")

		assert.Equal(t, http.StatusOK, rr.Code)

		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.LastName)
		assert.NotEmpty(t, user.ID)
	})

	t.Run("pre-split name fields are preserved", func(t *testing.T) {
		stack := newTestStack(t)

		rr := postSyncUser(t, stack, `{
			"external_id": "g-456",
			"email": "jane@x.edu",
			"first_name": "Jane",
			"last_name": "Q Public"
		}`, "")

		require.Equal(t, http.StatusOK, rr.Code)
		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "Jane", user.FirstName)
		assert.Equal(t, "Q Public", user.LastName)
	})

	t.Run("split fields win over full_name", func(t *testing.T) {
		stack := newTestStack(t)

		rr := postSyncUser(t, stack, `{
			"external_id": "g-457",
			"email": "sam@x.edu",
			"first_name": "Sam",
			"last_name": "Lee",
			"full_name": "Someone Else"
		}`, "")

		require.Equal(t, http.StatusOK, rr.Code)
		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "Sam", user.FirstName)
		assert.Equal(t, "Lee", user.LastName)
	})

	t.Run("repeat sync returns the same user", func(t *testing.T) {
		stack := newTestStack(t)

		first := postSyncUser(t, stack, `{"external_id":"g-9","email":"bob@x.edu"}`, "")
		require.Equal(t, http.StatusOK, first.Code)
		var u1 model.User
		require.NoError(t, json.NewDecoder(first.Body).Decode(&u1))

		second := postSyncUser(t, stack, `{"external_id":"g-9","email":"bob+new@x.edu"}`, "")
		require.Equal(t, http.StatusOK, second.Code)
		var u2 model.User
		require.NoError(t, json.NewDecoder(second.Body).Decode(&u2))

		assert.Equal(t, u1.ID, u2.ID)
		assert.Equal(t, "bob+new@x.edu", u2.Email)
	})

	t.Run("bearer subject overrides body external_id", func(t *testing.T) {
		stack := newTestStack(t)

		token := signSupabaseToken(t, "sb-777")
		rr := postSyncUser(t, stack, `{"external_id":"ignored","email":"carol@x.edu","full_name":"Carol Ng"}`, token)
		require.Equal(t, http.StatusOK, rr.Code)

		// Sync again with just the bearer identity — must hit the same user
		again := postSyncUser(t, stack, `{"email":"carol@x.edu"}`, token)
		require.Equal(t, http.StatusOK, again.Code)

		var u1, u2 model.User
		rr2 := postSyncUser(t, stack, `{"email":"carol@x.edu"}`, token)
		require.NoError(t, json.NewDecoder(again.Body).Decode(&u1))
		require.NoError(t, json.NewDecoder(rr2.Body).Decode(&u2))
		assert.Equal(t, u1.ID, u2.ID)
	})

	t.Run("forged bearer token is rejected", func(t *testing.T) {
		stack := newTestStack(t)

		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "sb-1"})
		signed, err := forged.SignedString([]byte("wrong-secret-entirely-different"))
		require.NoError(t, err)

		rr := postSyncUser(t, stack, `{"email":"eve@x.edu"}`, signed)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing email is a 400", func(t *testing.T) {
		stack := newTestStack(t)

		rr := postSyncUser(t, stack, `{"external_id":"g-1"}`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "invalid_claims", resp["error"])
	})

	t.Run("malformed JSON is a 400", func(t *testing.T) {
		stack := newTestStack(t)

		rr := postSyncUser(t, stack, `{"email":`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleGoogleLogin_DirectFlow(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil)
	rr := httptest.NewRecorder()
	stack.auth.HandleGoogleLogin(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp["auth_url"], "accounts.google.com")

	// The CSRF state cookie must accompany the URL
	var found bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauth_state" && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "expected oauth_state cookie to be set")
}

func TestHandleGoogleCallback_StateMismatch(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=x&state=bad", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "good"})
	rr := httptest.NewRecorder()
	stack.auth.HandleGoogleCallback(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleMe(t *testing.T) {
	stack := newTestStack(t)

	// Create a user through the sync endpoint, then fetch it as "me"
	rr := postSyncUser(t, stack, `{"external_id":"g-me","email":"me@x.edu"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var user model.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))

	token, err := stack.tokens.Generate(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected := auth.RequireAuth(stack.tokens)(http.HandlerFunc(stack.auth.HandleMe))
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, user.ID, me.ID)
}

func TestHandleMe_Unauthenticated(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()

	protected := auth.RequireAuth(stack.tokens)(http.HandlerFunc(stack.auth.HandleMe))
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogout_ClearsCookie(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	stack.auth.HandleLogout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected token cookie to be expired")
}
