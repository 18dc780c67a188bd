package handler

import (
	"net/http"
)

// StatusHandler serves the API root.
type StatusHandler struct{}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// HandleRoot reports that the API is up and where to find it.
//
// HTTP: GET /
//
// Deployment health checks hit this; it must not touch the database.
func (h *StatusHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "CourseMate API",
		"api":     "/api",
	})
}
