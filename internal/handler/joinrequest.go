package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/coursemate/internal/apperror"
	"github.com/sakif/coursemate/internal/auth"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository"
	"github.com/sakif/coursemate/internal/service"
)

// JoinRequestHandler manages community join requests.
//
// PERMISSION SPLIT:
// Creating a request is open to everyone — visitors ask to join before they
// have an account. Every other operation (listing, moderating, deleting) is
// for authenticated users; the router enforces that with RequireAuth, while
// the create route sits behind OptionalAuth so a logged-in requester gets
// linked automatically.
type JoinRequestHandler struct {
	requests *service.JoinRequestService
	logger   *slog.Logger
}

// NewJoinRequestHandler creates a JoinRequestHandler.
func NewJoinRequestHandler(requests *service.JoinRequestService, logger *slog.Logger) *JoinRequestHandler {
	return &JoinRequestHandler{requests: requests, logger: logger}
}

// HandleCreate files a new join request.
//
// HTTP: POST /api/join-requests
// Auth: Optional — an authenticated caller's identity overrides the body's
// user_id; anonymous callers may still link themselves via user_id/user_email.
func (h *JoinRequestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input service.JoinRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	// Empty when the caller is anonymous
	userID, _ := auth.UserIDFromContext(r.Context())

	request, err := h.requests.Create(r.Context(), input, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

// HandleList returns join requests newest first, optionally filtered by status.
//
// HTTP: GET /api/join-requests?status=pending
// Auth: Required
func (h *JoinRequestHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := repository.JoinRequestFilter{
		Status: r.URL.Query().Get("status"),
	}

	requests, err := h.requests.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if requests == nil {
		requests = []model.JoinRequest{}
	}

	writeJSON(w, http.StatusOK, requests)
}

// HandleGet returns a single join request.
//
// HTTP: GET /api/join-requests/{id}
// Auth: Required
func (h *JoinRequestHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	request, err := h.requests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// HandleUpdateStatus moves a request through the moderation workflow.
//
// HTTP: PUT /api/join-requests/{id}
// Auth: Required
// REQUEST BODY: {"status": "approved"}
func (h *JoinRequestHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input service.JoinRequestStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	request, err := h.requests.UpdateStatus(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// HandleDelete removes a join request.
//
// HTTP: DELETE /api/join-requests/{id}
// Auth: Required
func (h *JoinRequestHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.requests.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
