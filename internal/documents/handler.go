package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/shared/server/middleware"
	"sst-backend/internal/shared/server/respond"
	"sst-backend/internal/shared/telemetry"
)

const maxRenderBody = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
	// RenderLimit throttles the render endpoint; nil disables it.
	RenderLimit gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, renderLimit gin.HandlerFunc) *Handler {
	return &Handler{Svc: svc, RenderLimit: renderLimit}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	renderChain := []gin.HandlerFunc{h.render}
	if h.RenderLimit != nil {
		renderChain = append([]gin.HandlerFunc{h.RenderLimit}, renderChain...)
	}
	rg.POST("/documents/render", renderChain...)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id/download", h.download)
}

type renderRequest struct {
	Profile string          `json:"profile"`
	Fields  json.RawMessage `json:"fields"`
	Store   bool            `json:"store"`
}

func (h *Handler) render(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRenderBody)

	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Profile = strings.TrimSpace(req.Profile)
	if req.Profile == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "profile is required", nil)
		return
	}

	ctx := c.Request.Context()
	rendered, err := h.Svc.Render(ctx, RenderInput{Profile: req.Profile, Fields: req.Fields})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to render document", nil)
		}
		return
	}

	if !req.Store {
		c.Header("X-Page-Count", strconv.Itoa(rendered.Pages))
		_ = respond.PDF(c, "inline", rendered.FileName, int64(len(rendered.PDF)), bytes.NewReader(rendered.PDF))
		return
	}

	doc, err := h.Svc.Save(ctx, middleware.IdentityFromContext(c), rendered)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			telemetry.Error("documents.store_failed", map[string]any{"error": err})
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to store document", nil)
		}
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Svc.List(c.Request.Context(), middleware.IdentityFromContext(c), limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) download(c *gin.Context) {
	documentID := strings.TrimSpace(c.Param("id"))
	c.Set("documentId", documentID)

	body, doc, err := h.Svc.Open(c.Request.Context(), middleware.IdentityFromContext(c), documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "document belongs to another user", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open document", nil)
		}
		return
	}
	defer body.Close()

	if err := respond.PDF(c, "attachment", fileName(doc.Code, doc.Title), doc.SizeBytes, body); err != nil {
		telemetry.Warn("documents.download_interrupted", map[string]any{"document_id": doc.ID, "error": err})
	}
}
