package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const frontend = "http://localhost:5173"

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(origins))
	router.PUT("/api/v1/requests/respond", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/documents/:id/download", func(c *gin.Context) {
		c.Header("Content-Disposition", "attachment; filename=acta.pdf")
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORS(t *testing.T) {
	cases := []struct {
		name      string
		origins   []string
		method    string
		path      string
		origin    string
		preflight bool
		wantCode  int
		wantAllow string
	}{
		{name: "preflight for respond", origins: []string{frontend}, method: http.MethodOptions, path: "/api/v1/requests/respond", origin: frontend, preflight: true, wantCode: http.StatusNoContent, wantAllow: frontend},
		{name: "download from frontend", origins: []string{" " + frontend + " ", ""}, method: http.MethodGet, path: "/api/v1/documents/4/download", origin: frontend, wantCode: http.StatusOK, wantAllow: frontend},
		{name: "unknown origin", origins: []string{frontend}, method: http.MethodGet, path: "/api/v1/documents/4/download", origin: "http://evil.example"},
		{name: "no origins configured", method: http.MethodGet, path: "/api/v1/documents/4/download", origin: frontend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}
			rec := httptest.NewRecorder()
			corsRouter(tc.origins...).ServeHTTP(rec, req)

			if tc.wantCode != 0 && rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			h := rec.Header()
			if got := h.Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Fatalf("Allow-Origin = %q, want %q", got, tc.wantAllow)
			}
			if tc.wantAllow == "" {
				return
			}
			if h.Get("Access-Control-Allow-Credentials") != "true" {
				t.Fatalf("expected credentials allowed")
			}
			if tc.preflight {
				if !strings.Contains(h.Get("Access-Control-Allow-Methods"), http.MethodPut) || h.Get("Access-Control-Max-Age") != "600" {
					t.Fatalf("unexpected preflight headers: %v", h)
				}
			} else if !strings.Contains(h.Get("Access-Control-Expose-Headers"), "Content-Disposition") {
				t.Fatalf("download filename header must be exposed, got %q", h.Get("Access-Control-Expose-Headers"))
			}
		})
	}
}
