package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/shared/server/middleware"
	"sst-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup, approverRole string) {
	rg.GET("/me", meHandler(approverRole))
}

func meHandler(approverRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.IdentityFromContext(c)
		if id.UserID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		response := gin.H{
			"userId":     id.UserID,
			"role":       id.Role,
			"isApprover": id.Role != "" && id.Role == approverRole,
		}
		if id.Email != "" {
			response["email"] = id.Email
		}
		if id.Name != "" {
			response["name"] = id.Name
		}
		respond.OK(c, response)
	}
}
