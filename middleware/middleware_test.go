package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recyclebuddy/recyclebuddy/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		name, _ := CurrentUsername(ctx)
		ctx.String(http.StatusOK, name)
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	valid, err := utils.GenerateToken("alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	revoked, err := utils.GenerateToken("bob", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := utils.ParseToken(revoked)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	utils.RevokeToken(claims.ID, claims.ExpiresAt.Time)
	// a second login of the same player is unaffected
	sameUser, err := utils.GenerateToken("bob", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
		{"revoked token", "Bearer " + revoked, http.StatusUnauthorized, ""},
		{"valid token", "Bearer " + valid, http.StatusOK, "alice"},
		{"other session of revoked user", "Bearer " + sameUser, http.StatusOK, "bob"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "alice"},
	}
	r := newAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestCurrentUsername_Unset(t *testing.T) {
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	if name, ok := CurrentUsername(ctx); ok || name != "" {
		t.Errorf("CurrentUsername() = %q, %v; want empty, false", name, ok)
	}
}

func TestRateLimit(t *testing.T) {
	// burst is perMinute/2
	r := gin.New()
	r.GET("/ping", RateLimit(4), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("192.0.2.10"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, code)
		}
	}
	if code := do("192.0.2.10"); code != http.StatusTooManyRequests {
		t.Errorf("over burst status = %d, want 429", code)
	}
	if code := do("192.0.2.11"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}
