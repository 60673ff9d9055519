package respond

import (
	"github.com/gin-gonic/gin"

	"sst-backend/internal/shared/telemetry"
)

// ErrorBody is the error object every endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with a standardized error body. Client errors are
// logged at warn level, server errors at error level.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"route":   c.FullPath(),
		"method":  c.Request.Method,
	}
	for _, key := range []string{"requestId", "userId", "documentId"} {
		if v, ok := c.Get(key); ok {
			fields[key] = v
		}
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.rejected", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}
