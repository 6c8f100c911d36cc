package api

import (
	"log/slog"
	"net/http"

	"github.com/brandloom/brandloom/internal/engine"
)

// cleanupHandler serves manual cleanup runs.
type cleanupHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

type cleanupRequest struct {
	UserID   string `json:"userId,omitempty"`
	KeepDays int    `json:"keepDays,omitempty"`
}

// runCleanup handles POST /api/v1/cleanup. With a userId the run is scoped
// to that user; without one it sweeps every user.
func (h *cleanupHandler) runCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.KeepDays < 0 {
		WriteError(w, http.StatusBadRequest, "invalid_keep_days", "keepDays must not be negative", h.logger)
		return
	}

	if req.UserID != "" {
		deleted, err := h.engine.CleanupOldVectors(r.Context(), req.UserID, req.KeepDays)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "cleanup_failed", "cleanup run failed", h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
		return
	}

	stats, err := h.engine.CleanupAllUsersVectors(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "cleanup_failed", "cleanup run failed", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
