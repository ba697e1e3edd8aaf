package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"audit-backend/internal/auth"
	"audit-backend/internal/config"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"

	"github.com/google/uuid"
)

type userMap map[uuid.UUID]*models.User

func (m userMap) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func newTestAuth() (*AuthMiddleware, *auth.JWTManager, userMap) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-secret"
	cfg.JWT.ExpirationHours = 1
	jwtManager := auth.NewJWTManager(cfg)
	users := userMap{}
	return NewAuthMiddleware(jwtManager, users), jwtManager, users
}

func echoRole() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUserFromContext(r.Context())
		w.Write([]byte(user.Role))
	})
}

func TestAuthenticate(t *testing.T) {
	m, jwtManager, users := newTestAuth()
	vendor := &models.User{ID: uuid.New(), Email: "v@example.com", Role: models.RoleVendor, IsApproved: true}
	users[vendor.ID] = vendor
	token, _ := jwtManager.GenerateToken(vendor)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Authenticate(echoRole()).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != models.RoleVendor {
				t.Fatalf("user not in context: %q", rec.Body.String())
			}
		})
	}

	delete(users, vendor.ID)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Authenticate(echoRole()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted account should be rejected, got %d", rec.Code)
	}
}

func TestRequireRoleAndApproved(t *testing.T) {
	m, _, _ := newTestAuth()
	worker := &models.User{ID: uuid.New(), Role: models.RoleWorker}

	serve := func(h http.Handler, user *models.User) int {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/start", nil)
		if user != nil {
			req = req.WithContext(WithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := serve(m.RequireRole(models.RoleAdmin)(echoRole()), worker); code != http.StatusForbidden {
		t.Fatalf("wrong role: %d", code)
	}
	if code := serve(m.RequireRole(models.RoleWorker)(echoRole()), nil); code != http.StatusUnauthorized {
		t.Fatalf("no user: %d", code)
	}
	if code := serve(m.RequireApproved(echoRole()), worker); code != http.StatusForbidden {
		t.Fatalf("unapproved: %d", code)
	}
	worker.IsApproved = true
	if code := serve(m.RequireRole(models.RoleWorker)(m.RequireApproved(echoRole())), worker); code != http.StatusOK {
		t.Fatalf("approved worker: %d", code)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if ip := ClientIP(req); ip != "192.0.2.1" {
		t.Fatalf("remote addr: %q", ip)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := ClientIP(req); ip != "203.0.113.9" {
		t.Fatalf("forwarded: %q", ip)
	}
}
