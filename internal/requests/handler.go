package requests

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/notifications"
	"sst-backend/internal/shared/server/middleware"
	"sst-backend/internal/shared/server/respond"
	"sst-backend/internal/shared/telemetry"
	"sst-backend/internal/uploads"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches request routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/requests", h.create)
	rg.GET("/requests", h.list)
	rg.GET("/requests/:id", h.get)
	rg.GET("/requests/:id/document", h.download)
	rg.PUT("/requests/respond", h.respond)
	rg.POST("/requests/replace-document", h.replaceDocument)
}

func (h *Handler) create(c *gin.Context) {
	ctx := notifications.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if !h.parseForm(c) {
		return
	}

	fh := formFile(c, "file")
	upload, err := h.Svc.Intake.FromMultipart(ctx, fh, uploads.NamespaceOriginals, uploads.DocumentPolicy)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	req, err := h.Svc.Create(ctx, middleware.IdentityFromContext(c), CreateInput{
		Type:         c.PostForm("type"),
		Message:      c.PostForm("message"),
		Upload:       upload,
		DocumentPath: c.PostForm("documentPath"),
	})
	if err != nil {
		writeError(c, err, "failed to create request")
		return
	}
	c.Set("requestRecordId", strconv.FormatInt(req.ID, 10))
	respond.Created(c, toResponse(req))
}

func (h *Handler) list(c *gin.Context) {
	var status Status
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		switch Status(strings.ToLower(v)) {
		case StatusPending, StatusApproved, StatusRejected:
			status = Status(strings.ToLower(v))
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "status must be pending, approved or rejected", nil)
			return
		}
	}

	items, err := h.Svc.List(c.Request.Context(), middleware.IdentityFromContext(c), status)
	if err != nil {
		writeError(c, err, "failed to list requests")
		return
	}
	resp := make([]RequestResponse, 0, len(items))
	for _, req := range items {
		resp = append(resp, toResponse(req))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, err := h.Svc.Get(c.Request.Context(), middleware.IdentityFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch request")
		return
	}
	respond.OK(c, toResponse(req))
}

func (h *Handler) download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	signed := c.DefaultQuery("variant", "original") == "signed"
	body, name, err := h.Svc.OpenDocument(c.Request.Context(), middleware.IdentityFromContext(c), id, signed)
	if err != nil {
		writeError(c, err, "failed to open document")
		return
	}
	defer body.Close()

	if err := respond.PDF(c, "attachment", name, 0, body); err != nil {
		telemetry.Warn("requests.download_interrupted", map[string]any{"request_id": id, "error": err})
	}
}

func (h *Handler) respond(c *gin.Context) {
	ctx := notifications.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if !h.parseForm(c) {
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("requestId")), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "requestId is required", nil)
		return
	}
	c.Set("requestRecordId", strconv.FormatInt(id, 10))

	fh := formFile(c, "signature")
	signature, err := h.Svc.Intake.FromMultipart(ctx, fh, uploads.NamespaceSignatures, uploads.SignaturePolicy)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	req, err := h.Svc.Respond(ctx, middleware.IdentityFromContext(c), RespondInput{
		RequestID: id,
		Decision:  c.PostForm("decision"),
		Comment:   c.PostForm("comment"),
		Signature: signature,
	})
	if err != nil {
		writeError(c, err, "failed to respond to request")
		return
	}
	c.Set("statusTransition", string(StatusPending)+"->"+string(req.Status))
	respond.OK(c, toResponse(req))
}

func (h *Handler) replaceDocument(c *gin.Context) {
	ctx := notifications.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if !h.parseForm(c) {
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("requestId")), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "requestId is required", nil)
		return
	}
	c.Set("requestRecordId", strconv.FormatInt(id, 10))

	fh := formFile(c, "file")
	if fh == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := h.Svc.Intake.FromMultipart(ctx, fh, uploads.NamespaceSigned, uploads.DocumentPolicy)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	req, err := h.Svc.ReplaceSignedDocument(ctx, middleware.IdentityFromContext(c), id, file)
	if err != nil {
		writeError(c, err, "failed to replace signed document")
		return
	}
	respond.OK(c, toResponse(req))
}

// parseForm reads the multipart body, capped at one upload plus room for the
// text fields. It reports false after writing an error response.
func (h *Handler) parseForm(c *gin.Context) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.Intake.MaxBytes+1<<20)
	_, err := c.MultipartForm()
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "request body too large", nil)
		return false
	}
	respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart body", nil)
	return false
}

// formFile returns the named part, or nil when it is absent.
func formFile(c *gin.Context, name string) *multipart.FileHeader {
	fh, err := c.FormFile(name)
	if err != nil {
		return nil
	}
	return fh
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request id", nil)
		return 0, false
	}
	c.Set("requestRecordId", c.Param("id"))
	return id, true
}

func writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), nil)
	case errors.Is(err, uploads.ErrUnsupportedType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file_type", err.Error(), nil)
	case errors.Is(err, uploads.ErrEmptyFile):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		telemetry.Error("requests.upload_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to store upload", nil)
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotPending):
		respond.Error(c, http.StatusBadRequest, "not_pending", err.Error(), nil)
	case errors.Is(err, ErrNotSignable):
		respond.Error(c, http.StatusBadRequest, "not_signable", err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed for this request", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrStampFailed):
		respond.Error(c, http.StatusUnprocessableEntity, "stamp_failed", err.Error(), nil)
	default:
		telemetry.Error("requests.failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
