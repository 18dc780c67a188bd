package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/coursemate/internal/apperror"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository"
	"github.com/sakif/coursemate/internal/service"
)

// CommunityHandler manages CRUD operations for communities.
//
// WHY A SEPARATE HANDLER?
// Each handler struct "owns" one area of functionality. This makes code
// easier to test (mock dependencies independently), understand (all
// community logic in one place), and modify.
type CommunityHandler struct {
	communities *service.CommunityService
	logger      *slog.Logger
}

// NewCommunityHandler creates a CommunityHandler.
func NewCommunityHandler(communities *service.CommunityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{communities: communities, logger: logger}
}

// HandleList returns all communities, optionally filtered by type.
//
// HTTP: GET /api/communities?type=course
func (h *CommunityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := repository.CommunityFilter{
		Type: r.URL.Query().Get("type"),
	}

	communities, err := h.communities.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if communities == nil {
		// The frontend iterates the response — [] beats null.
		communities = []model.Community{}
	}

	writeJSON(w, http.StatusOK, communities)
}

// HandleGet returns a single community.
//
// HTTP: GET /api/communities/{id}
func (h *CommunityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	community, err := h.communities.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, community)
}

// HandleCreate creates a new community.
//
// HTTP: POST /api/communities
// Auth: Required
// REQUEST BODY: {"code":"CSCI-201","name":"...","number":"201","type":"course"}
func (h *CommunityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input service.CommunityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	community, err := h.communities.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, community)
}

// HandleUpdate replaces a community's fields.
//
// HTTP: PUT /api/communities/{id}
// Auth: Required
func (h *CommunityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var input service.CommunityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	community, err := h.communities.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, community)
}

// HandleDelete removes a community.
//
// HTTP: DELETE /api/communities/{id}
// Auth: Required
func (h *CommunityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.communities.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent) // 204 — successful deletion, no body
}
