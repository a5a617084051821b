package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kdiomande/fidelite-system/internal/model"
)

func issueCookie(t *testing.T, auth *AuthMiddleware, userID int64, role model.UserRole) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	auth.SetAuthCookie(rec, userID, role)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected exactly one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestAuthMiddlewareRoundtrip(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	var got Identity
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing from context")
		}
		got = identity
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issueCookie(t, auth, 42, model.RoleInfluencer))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.UserID != 42 || got.Role != model.RoleInfluencer {
		t.Fatalf("identity = %+v", got)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached")
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		cookie := issueCookie(t, auth, 42, model.RoleCustomer)
		// Подмена роли в полезной нагрузке ломает подпись.
		cookie.Value = strings.Replace(cookie.Value, "customer", "admin", 1)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("foreign secret", func(t *testing.T) {
		other := NewAuthMiddleware("other-secret")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(issueCookie(t, other, 42, model.RoleCustomer))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")
	handler := auth.Middleware(RequireRole(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(issueCookie(t, auth, 7, model.RoleCustomer))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("matching role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(issueCookie(t, auth, 1, model.RoleAdmin))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}
