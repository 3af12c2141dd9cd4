package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/recyclebuddy/recyclebuddy/config"
	"github.com/recyclebuddy/recyclebuddy/game"
	"github.com/recyclebuddy/recyclebuddy/quiz"
	"github.com/recyclebuddy/recyclebuddy/store"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "routes-test-secret")
	os.Exit(m.Run())
}

type stubModel struct{}

func (stubModel) Generate(ctx context.Context, prompt string, img *quiz.Image) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Get()
	cfg.Gin.Mode = "test"
	cfg.Gin.LogPath = filepath.Join(t.TempDir(), "gin.log")
	cfg.Uploads.Dir = t.TempDir()
	return SetupRouter(cfg, Deps{
		Store:    st,
		Pipeline: quiz.NewPipeline(stubModel{}, time.Second),
		Sessions: quiz.NewMemorySessionStore(),
		Rules:    game.DefaultRules(),
	})
}

func TestSetupRouter(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/user/info", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/quiz/scan", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/quiz/answer", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/auth/captcha", http.StatusOK},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/quiz/scan", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
