package respond

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 JSON response.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

// Disposition builds a Content-Disposition value. Accented file names such
// as "Acta_Reunión.pdf" are emitted with the RFC 5987 filename* form.
func Disposition(kind, fileName string) string {
	if v := mime.FormatMediaType(kind, map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return kind
}

// PDF streams body as application/pdf. size is optional; pass 0 when unknown.
// The returned error is a write error after headers went out, so callers can
// only log it.
func PDF(c *gin.Context, kind, fileName string, size int64, body io.Reader) error {
	h := c.Writer.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", Disposition(kind, fileName))
	if size > 0 {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}
	c.Status(http.StatusOK)
	_, err := io.Copy(c.Writer, body)
	return err
}
