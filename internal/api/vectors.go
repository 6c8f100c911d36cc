package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brandloom/brandloom/internal/engine"
	"github.com/brandloom/brandloom/internal/vector"
)

// maxBodyBytes caps request bodies; canonical text for one content item is
// far below this.
const maxBodyBytes = 1 << 20

// vectorHandler holds dependencies for the vector write endpoints.
type vectorHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON for this endpoint", logger)
		return false
	}
	return true
}

type metadataBody struct {
	Industry    *string  `json:"industry,omitempty"`
	Style       *string  `json:"style,omitempty"`
	Performance *float64 `json:"performance,omitempty"`
	Engagement  *int     `json:"engagement,omitempty"`
	Platform    *string  `json:"platform,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (m metadataBody) patch() vector.MetadataPatch {
	return vector.MetadataPatch{
		Industry:    m.Industry,
		Style:       m.Style,
		Performance: m.Performance,
		Engagement:  m.Engagement,
		Platform:    m.Platform,
		Tags:        m.Tags,
	}
}

func (m metadataBody) metadata() vector.Metadata {
	return m.patch().Apply(vector.Metadata{})
}

type storeVectorRequest struct {
	UserID           string       `json:"userId"`
	ContentType      string       `json:"contentType"`
	ContentID        string       `json:"contentId"`
	TextContent      string       `json:"textContent"`
	Metadata         metadataBody `json:"metadata"`
	SourceCollection string       `json:"sourceCollection,omitempty"`
	SourceDocID      string       `json:"sourceDocId,omitempty"`
}

// storeVector handles POST /api/v1/vectors.
// 429 with the quota reason is the only failure a caller sees; absorbed
// storage failures still answer 202.
func (h *vectorHandler) storeVector(w http.ResponseWriter, r *http.Request) {
	var req storeVectorRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" || req.ContentID == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "userId and contentId are required", h.logger)
		return
	}
	contentType := vector.ContentType(req.ContentType)
	if !contentType.Valid() {
		WriteError(w, http.StatusBadRequest, "invalid_content_type", "unknown contentType", h.logger)
		return
	}

	err := h.engine.StoreContentVector(r.Context(), vector.PutRequest{
		UserID:           req.UserID,
		ContentType:      contentType,
		ContentID:        req.ContentID,
		TextContent:      req.TextContent,
		Metadata:         req.Metadata.metadata(),
		SourceCollection: req.SourceCollection,
		SourceDocID:      req.SourceDocID,
	})
	if err != nil {
		if engine.IsRateLimited(err) {
			WriteError(w, http.StatusTooManyRequests, "quota_exceeded", err.Error(), h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "store_failed", "failed to store vector", h.logger)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "stored"})
}

type updateVectorRequest struct {
	UserID      string       `json:"userId"`
	ContentID   string       `json:"contentId"`
	TextContent string       `json:"textContent"`
	Metadata    metadataBody `json:"metadata"`
}

// updateVector handles PATCH /api/v1/vectors.
func (h *vectorHandler) updateVector(w http.ResponseWriter, r *http.Request) {
	var req updateVectorRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" || req.ContentID == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "userId and contentId are required", h.logger)
		return
	}

	updated := h.engine.UpdateContentVector(r.Context(), req.UserID, req.ContentID, req.TextContent, req.Metadata.patch())
	WriteJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

type performanceRequest struct {
	UserID    string                    `json:"userId"`
	ContentID string                    `json:"contentId"`
	Metrics   engine.PerformanceMetrics `json:"metrics"`
}

// updatePerformance handles POST /api/v1/vectors/performance.
func (h *vectorHandler) updatePerformance(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" || req.ContentID == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "userId and contentId are required", h.logger)
		return
	}

	updated := h.engine.UpdateContentPerformance(r.Context(), req.UserID, req.ContentID, req.Metrics)
	WriteJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}
