package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/gin-gonic/gin"
)

func newRouter(v *Verifier, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logger.NewNop()
	r.GET("/secure", Authenticate(v, log), Authorize(log, roles...), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c.Request.Context()))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	v := NewVerifier("test-secret")
	manager, err := v.Sign(&UserContext{UserID: "u1", Username: "maria", Role: RoleManager}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	cashier, _ := v.Sign(&UserContext{UserID: "u2", Username: "joe", Role: RoleCashier}, time.Hour)
	expired, _ := v.Sign(&UserContext{UserID: "u3", Username: "old", Role: RoleAdmin}, -time.Minute)
	forged, _ := NewVerifier("other-secret").Sign(&UserContext{UserID: "u4", Role: RoleAdmin}, time.Hour)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusForbidden},
		{"wrong secret", "Bearer " + forged, http.StatusForbidden},
		{"role not allowed", "Bearer " + cashier, http.StatusForbidden},
		{"allowed", "Bearer " + manager, http.StatusOK},
	}

	r := newRouter(v, RoleAdmin, RoleManager)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != "u1" {
				t.Fatalf("expected user id u1 in context, got %q", w.Body.String())
			}
		})
	}
}
