package api

import (
	"log/slog"
	"net/http"

	"github.com/brandloom/brandloom/internal/engine"
	"github.com/brandloom/brandloom/internal/vector"
)

const maxQueryLength = 8192

// contextHandler serves the retrieval endpoint.
type contextHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

type retrieveRequest struct {
	Query                   string   `json:"query"`
	UserID                  string   `json:"userId"`
	ContentType             string   `json:"contentType,omitempty"`
	Industry                string   `json:"industry,omitempty"`
	MinPerformance          *float64 `json:"minPerformance,omitempty"`
	Limit                   int      `json:"limit,omitempty"`
	IncludeIndustryPatterns bool     `json:"includeIndustryPatterns,omitempty"`
	Timeframe               string   `json:"timeframe,omitempty"`
}

// retrieveContext handles POST /api/v1/context.
//
// Beyond input validation this endpoint cannot fail: the engine degrades
// every internal failure, including its own quota rejection, to the empty
// context.
func (h *contextHandler) retrieveContext(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "userId is required", h.logger)
		return
	}
	if req.Query == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "query is required", h.logger)
		return
	}
	if len(req.Query) > maxQueryLength {
		WriteError(w, http.StatusBadRequest, "query_too_long", "query exceeds the maximum length", h.logger)
		return
	}
	if req.ContentType != "" && !vector.ContentType(req.ContentType).Valid() {
		WriteError(w, http.StatusBadRequest, "invalid_content_type", "unknown contentType", h.logger)
		return
	}

	assembled := h.engine.RetrieveRelevantContext(r.Context(), req.Query, vector.RetrievalOptions{
		UserID:                  req.UserID,
		ContentType:             vector.ContentType(req.ContentType),
		Industry:                req.Industry,
		MinPerformance:          req.MinPerformance,
		Limit:                   req.Limit,
		IncludeIndustryPatterns: req.IncludeIndustryPatterns,
		Timeframe:               vector.Timeframe(req.Timeframe),
	})
	WriteJSON(w, http.StatusOK, assembled)
}
