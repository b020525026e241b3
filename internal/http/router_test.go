package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/techcodes/backend/internal/config"
	"github.com/techcodes/backend/internal/db"
	"github.com/techcodes/backend/internal/service"
)

func testEngine(adminKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		AdminKey:        adminKey,
		CORSAllowed:     "https://ops.example.com, https://backup.example.com",
		RequestTimeout:  5 * time.Second,
		MaxUploadSizeMB: 1,
	}
	svc := &service.DispatchService{Store: db.NewMemoryStore(), Logger: zerolog.Nop()}
	return Router(cfg, svc, zerolog.Nop())
}

func TestAdminRoutesRequireKey(t *testing.T) {
	r := testEngine("secret")

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/2/sent", strings.NewReader(`{"sent":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/tickets/2/sent", strings.NewReader(`{"sent":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no batch loaded, got %d", w.Code)
	}
}

func TestReadRoutesAreOpen(t *testing.T) {
	r := testEngine("secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := testEngine("")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://backup.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://backup.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
