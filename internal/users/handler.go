package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/shared/server/respond"
	"sst-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc          *Service
	ApproverRole string
}

func NewHandler(svc *Service, approverRole string) *Handler {
	return &Handler{Svc: svc, ApproverRole: approverRole}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/approvers", h.approvers)
}

type approverResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// approvers lists who can respond to signature requests, so the UI can show
// where a request will go.
func (h *Handler) approvers(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	members, err := h.Svc.ListByRole(c.Request.Context(), h.ApproverRole)
	if err != nil {
		telemetry.Error("users.approvers.failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list approvers", nil)
		return
	}
	out := make([]approverResponse, 0, len(members))
	for _, u := range members {
		out = append(out, approverResponse{ID: u.ID, Name: u.Name})
	}
	respond.OK(c, gin.H{"items": out})
}
