package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDisposition(t *testing.T) {
	if got := Disposition("attachment", "acta_07.pdf"); got != `attachment; filename=acta_07.pdf` {
		t.Fatalf("unexpected ascii disposition: %q", got)
	}
	got := Disposition("inline", "Acta Reunión.pdf")
	if !strings.HasPrefix(got, "inline; filename*=utf-8''") || !strings.Contains(got, "Reuni%C3%B3n") {
		t.Fatalf("unexpected utf-8 disposition: %q", got)
	}
}

func TestPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/doc", nil)

	if err := PDF(c, "attachment", "acta.pdf", 8, strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF-1.4" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/pdf" || rec.Header().Get("Content-Length") != "8" {
		t.Fatalf("unexpected headers: %v", rec.Header())
	}
}

func TestErrorAbortsWithBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reached := false
	r.GET("/x", func(c *gin.Context) {
		c.Set("requestId", "req-1")
		Error(c, http.StatusConflict, "conflict", "request already decided", map[string]int{"id": 4})
	}, func(c *gin.Context) { reached = true })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusConflict || reached {
		t.Fatalf("expected aborted 409, got %d reached=%v", rec.Code, reached)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "conflict" || body.Error.Message != "request already decided" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
