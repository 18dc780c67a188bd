package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/coursemate/internal/apperror"
	"github.com/sakif/coursemate/internal/auth"
	"github.com/sakif/coursemate/internal/service"
)

// AuthHandler manages the Google OAuth login flows and session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGoogleLogin      → hand the frontend the right authorization URL
//   - HandleGoogleCallback   → direct flow: exchange the code ourselves, sync, issue JWT
//   - HandleSupabaseCallback → delegated flow: Supabase exchanges the code, we sync
//   - HandleSyncUser         → sync from a Supabase bearer token or raw claims
//   - HandleMe               → return the currently logged-in user's profile
//   - HandleLogout           → clear the JWT cookie
//
// TWO LOGIN FLOWS, ONE RECONCILER:
// However the identity arrives — Google code exchange, Supabase session
// exchange, or the sync endpoint — the handler normalizes it into
// auth.Claims and hands it to the sync service. All the find-or-create
// logic lives there; the handler only translates HTTP.
type AuthHandler struct {
	google      *auth.GoogleProvider
	supabase    *auth.SupabaseClient
	bearer      *auth.BearerParser
	tokens      *auth.TokenService
	sync        *service.SyncService
	logger      *slog.Logger
	frontendURL string
	useSupabase bool
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	google *auth.GoogleProvider,
	supabase *auth.SupabaseClient,
	bearer *auth.BearerParser,
	tokens *auth.TokenService,
	sync *service.SyncService,
	logger *slog.Logger,
	frontendURL string,
	useSupabase bool,
) *AuthHandler {
	return &AuthHandler{
		google:      google,
		supabase:    supabase,
		bearer:      bearer,
		tokens:      tokens,
		sync:        sync,
		logger:      logger,
		frontendURL: frontendURL,
		useSupabase: useSupabase,
	}
}

// HandleGoogleLogin returns the authorization URL the frontend should send
// the browser to.
//
// HTTP: GET /api/auth/google/login
// RESPONSE: {"auth_url": "https://..."}
//
// When Supabase handles the OAuth dance (the default), the URL points at the
// project's authorize endpoint and Supabase manages state itself. In the
// direct flow we build the Google consent URL and do our own CSRF protection:
// a random state value stored in a short-lived HttpOnly cookie, verified on
// callback.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.useSupabase {
		writeJSON(w, http.StatusOK, map[string]string{
			"auth_url": h.supabase.AuthorizeURL("google"),
		})
		return
	}

	// Generate a random, unguessable state value
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": h.google.AuthURL(state),
	})
}

// HandleGoogleCallback completes the direct OAuth flow.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie (CSRF check)
//  2. Exchange the code for Google identity claims
//  3. Sync the claims into a local user (find-or-create)
//  4. Issue a JWT access token stored in an HttpOnly cookie
//  5. Redirect to the frontend with the user JSON in the query string
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		writeError(w, apperror.Unauthorized("invalid OAuth state"))
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.Unauthorized("invalid OAuth state"))
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// Check if Google sent an error (user denied authorization)
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, h.frontendURL+"/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for Google claims ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.Exchange(apperror.KindMissingCode, "authorization code is required"))
		return
	}

	claims, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	// --- Step 3: Sync claims into a local user ---
	user, err := h.sync.Sync(r.Context(), claims)
	if err != nil {
		h.logger.Error("auth callback: sync failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	// --- Step 4: Issue JWT cookie ---
	tokenStr, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, tokenStr)

	// --- Step 5: Redirect to the frontend ---
	// The user JSON rides along in the query string so the frontend can
	// populate its session without an extra round-trip.
	userJSON, err := json.Marshal(user)
	if err != nil {
		writeError(w, err)
		return
	}
	redirect := h.frontendURL + "/oauth2callback?user=" + url.QueryEscape(string(userJSON))
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// supabaseCallbackRequest is the body of the delegated callback.
type supabaseCallbackRequest struct {
	Code string `json:"code"`
}

// supabaseCallbackResponse bundles everything the frontend needs after a
// Supabase login: our local user, our access token, and the Supabase session
// passed through untouched.
type supabaseCallbackResponse struct {
	User    any             `json:"user"`
	Session json.RawMessage `json:"session"`
	Token   string          `json:"token"`
}

// HandleSupabaseCallback completes the delegated OAuth flow.
//
// HTTP: POST /api/auth/google/callback
// REQUEST BODY: {"code": "..."}
//
// The frontend got the code from Supabase's redirect; we exchange it through
// the Supabase admin API, sync the resulting identity, and hand back the user
// together with the untouched Supabase session object.
func (h *AuthHandler) HandleSupabaseCallback(w http.ResponseWriter, r *http.Request) {
	var req supabaseCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}
	if req.Code == "" {
		writeError(w, apperror.Exchange(apperror.KindMissingCode, "authorization code is required"))
		return
	}

	claims, session, err := h.supabase.ExchangeSession(r.Context(), req.Code)
	if err != nil {
		h.logger.Error("supabase callback: session exchange failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	user, err := h.sync.Sync(r.Context(), claims)
	if err != nil {
		h.logger.Error("supabase callback: sync failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	tokenStr, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.logger.Error("supabase callback: token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, tokenStr)

	writeJSON(w, http.StatusOK, supabaseCallbackResponse{
		User:    user,
		Session: session,
		Token:   tokenStr,
	})
}

// syncUserRequest is the body of the sync endpoint. All fields are optional:
// with a bearer token only the profile fields matter (the subject comes from
// the token); without one, external_id and email drive the sync directly.
//
// Names arrive pre-split as first_name/last_name. full_name exists for
// clients that only hold the provider's display name (Supabase identity_data
// carries one); it is consulted only when both split fields are empty.
type syncUserRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FullName   string `json:"full_name"`
	AvatarURL  string `json:"avatar_url"`
}

// HandleSyncUser reconciles an externally-authenticated identity.
//
// HTTP: POST /api/auth/sync-user
//
// Two ways in:
//   - Authorization: Bearer <supabase JWT> — the token's subject becomes the
//     external id; the body supplies email/name/avatar.
//   - No bearer header — the body's external_id is used as-is. This is the
//     raw-claims path used by frontends that already hold a Supabase session.
//
// Either way the email invariant holds: no email, no user, 400.
func (h *AuthHandler) HandleSyncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	externalID := req.ExternalID
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		subject, err := h.bearer.Subject(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			h.logger.Warn("sync-user: bearer token rejected", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
		externalID = subject
	}

	first, last := req.FirstName, req.LastName
	if first == "" && last == "" {
		first, last = auth.SplitFullName(req.FullName)
	}
	user, err := h.sync.Sync(r.Context(), &auth.Claims{
		ExternalID: externalID,
		Email:      req.Email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  req.AvatarURL,
	})
	if err != nil {
		h.logger.Error("sync-user: sync failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	// Auth middleware has already validated the JWT and set userID in context.
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.sync.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the JWT cookie, effectively logging the user out.
//
// HTTP: POST /auth/logout
//
// Since we're stateless (JWT), "logout" just means deleting the client-side
// cookie. The token remains technically valid until it expires, but without
// the cookie the browser can't send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// setTokenCookie stores the access token in an HttpOnly cookie.
// HttpOnly = JavaScript cannot read this cookie (XSS protection).
// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
// Secure should be true in production (HTTPS only); false here for local dev.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, tokenStr string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int((15 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
