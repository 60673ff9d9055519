package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/shared/auth"
	"sst-backend/internal/shared/server/middleware"
	"sst-backend/internal/shared/server/respond"
	"sst-backend/internal/shared/telemetry"
)

// Handler exposes the caller's notifications.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.PATCH("/notifications/:id/read", h.markRead)
	rg.PATCH("/notifications/:id/hide", h.hide)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		telemetry.Error("notifications.list_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list notifications", nil)
		return
	}
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	respond.OK(c, gin.H{"items": items, "unread": unread})
}

func (h *Handler) markRead(c *gin.Context) {
	h.mutate(c, h.Svc.MarkRead)
}

func (h *Handler) hide(c *gin.Context) {
	h.mutate(c, h.Svc.Hide)
}

func (h *Handler) mutate(c *gin.Context, fn func(ctx context.Context, id auth.Identity, notificationID int64) error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid notification id", nil)
		return
	}
	err = fn(c.Request.Context(), middleware.IdentityFromContext(c), id)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "notification not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "notification belongs to another recipient", nil)
	default:
		telemetry.Error("notifications.update_failed", map[string]any{"notification_id": id, "error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update notification", nil)
	}
}
