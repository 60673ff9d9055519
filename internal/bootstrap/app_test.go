package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sst-backend/internal/shared/auth"
	"sst-backend/internal/shared/config"
)

var (
	employee = auth.Identity{UserID: "u-1", Name: "Ana Ruiz", Role: "employee"}
	approver = auth.Identity{UserID: "u-2", Name: "Luis Mora", Role: "admin"}
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	return config.Config{
		Env:               "test",
		ObjectStoreType:   "local",
		LocalStoreDir:     t.TempDir(),
		MaxUploadBytes:    5 << 20,
		ApproverRole:      "admin",
		AppBaseURL:        "http://localhost:5173",
		SignatureTimezone: "America/Bogota",
		Mail:              config.MailConfig{Transport: "log", Timeout: time.Second},
		Notify:            config.NotifyConfig{Workers: 1, QueueSize: 10},
	}
}

func token(t *testing.T, id auth.Identity) string {
	t.Helper()
	signed, err := auth.SignJWT(auth.Claims{
		Name:             id.Name,
		Role:             id.Role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.UserID},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + signed
}

func do(t *testing.T, h http.Handler, req *http.Request, id *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	if id != nil {
		req.Header.Set("Authorization", token(t, *id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileField, fileName string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 120, 40))
	for x := 5; x < 115; x++ {
		img.Set(x, 20, color.NRGBA{A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func TestBuildFallsBackToMemoryInDev(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close(context.Background())

	if app.DB != nil {
		t.Fatalf("expected in-memory repositories without DATABASE_URL")
	}
	rec := do(t, app.Router, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, app.Router, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	rec = do(t, app.Router, httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestRenderRequestApproveFlow(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close(context.Background())

	fields := `{"header":{"title":"Inspección preoperacional"},"body":"Sin novedad.","fields":[{"label":"Placa","value":"ABC-123"}],"signer":{"role":"Responsable","name":"Ana Ruiz"}}`
	renderReq := httptest.NewRequest(http.MethodPost, "/api/v1/documents/render",
		strings.NewReader(`{"profile":"pesv","store":true,"fields":`+fields+`}`))
	renderReq.Header.Set("Content-Type", "application/json")
	rec := do(t, app.Router, renderReq, &employee)
	if rec.Code != http.StatusCreated {
		t.Fatalf("render: %d %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil || doc.Path == "" {
		t.Fatalf("decode document: %v %s", err, rec.Body.String())
	}

	rec = do(t, app.Router, multipartRequest(t, http.MethodPost, "/api/v1/requests", map[string]string{
		"type":         "Inspección",
		"message":      "Por favor revisar",
		"documentPath": doc.Path,
	}, "", "", nil), &employee)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.Status != "pending" {
		t.Fatalf("decode created: %v %s", err, rec.Body.String())
	}

	rec = do(t, app.Router, multipartRequest(t, http.MethodPut, "/api/v1/requests/respond", map[string]string{
		"requestId": strconv.FormatInt(created.ID, 10),
		"decision":  "approved",
		"comment":   "Conforme",
	}, "signature", "firma.png", signaturePNG(t)), &approver)
	if rec.Code != http.StatusOK {
		t.Fatalf("respond: %d %s", rec.Code, rec.Body.String())
	}
	var approved struct {
		Status             string  `json:"status"`
		SignedDocumentPath *string `json:"signedDocumentPath"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &approved); err != nil {
		t.Fatalf("decode approved: %v", err)
	}
	if approved.Status != "approved" || approved.SignedDocumentPath == nil || *approved.SignedDocumentPath == doc.Path {
		t.Fatalf("expected approved with a distinct signed path, got %s", rec.Body.String())
	}

	rec = do(t, app.Router, httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+strconv.FormatInt(created.ID, 10)+"/document?variant=signed", nil), &employee)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("download signed: %d", rec.Code)
	}

	rec = do(t, app.Router, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil), &employee)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Inspección Aprobado") {
		t.Fatalf("requester notifications: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, app.Router, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil), &approver)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Nueva solicitud: Inspección") {
		t.Fatalf("approver notifications: %d %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}
