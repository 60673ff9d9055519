package documents

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"sst-backend/internal/shared/auth"
	"sst-backend/internal/shared/server/middleware"
)

func bearer(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Name: id.Name, Role: id.Role, RegisteredClaims: jwt.RegisteredClaims{Subject: id.UserID}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func newTestRouter(svc *Service, limit gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(svc, limit).RegisterRoutes(api)
	return router
}

func postRender(t *testing.T, router *gin.Engine, id auth.Identity, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/render", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, id))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRenderStreamsPDF(t *testing.T) {
	router := newTestRouter(newTestService(t), nil)
	resp := postRender(t, router, author, `{"profile":"minutes","fields":`+minutesFields+`}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("Content-Type") != "application/pdf" || resp.Header().Get("X-Page-Count") == "" {
		t.Fatalf("unexpected headers: %v", resp.Header())
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected a pdf body")
	}
}

func TestRenderStoreAndDownload(t *testing.T) {
	router := newTestRouter(newTestService(t), nil)
	resp := postRender(t, router, author, `{"profile":"minutes","store":true,"fields":`+minutesFields+`}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created DocumentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.DocumentID == "" || created.Path == "" || created.Pages < 1 {
		t.Fatalf("unexpected document: %+v", created)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/download", nil)
	req.Header.Set("Authorization", bearer(t, reviewer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || int64(resp.Body.Len()) != created.SizeBytes {
		t.Fatalf("expected %d byte download, got %d (%d)", created.SizeBytes, resp.Body.Len(), resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", bearer(t, author))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var listed []DocumentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].DocumentID != created.DocumentID {
		t.Fatalf("unexpected list: %+v", listed)
	}
}

func TestRenderValidationAndRateLimit(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	limiter := middleware.NewRateLimiter(func() time.Time { return now })
	limit := middleware.RateLimit("documents.render", middleware.RateLimitRule{Rate: 1, Burst: 2}, limiter)
	router := newTestRouter(newTestService(t), limit)

	if resp := postRender(t, router, author, `{"fields":{}}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without profile, got %d", resp.Code)
	}
	if resp := postRender(t, router, author, `{"profile":"invoice","fields":{}}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown profile, got %d", resp.Code)
	}
	resp := postRender(t, router, author, `{"profile":"minutes","fields":`+minutesFields+`}`)
	if resp.Code != http.StatusTooManyRequests || resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", resp.Code)
	}
	if resp := postRender(t, router, reviewer, `{"profile":"minutes","fields":`+minutesFields+`}`); resp.Code != http.StatusOK {
		t.Fatalf("expected another caller to be allowed, got %d", resp.Code)
	}
}
