package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kondo/esgportal/internal/model"
)

func roleRequest(role model.Role) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	ctx := ContextWithProfile(req.Context(), &model.Profile{
		ID:   "user-1",
		Role: role,
	}, "session-1")
	return req.WithContext(ctx)
}

func TestRequireRole_AllowedRole_PassesThrough(t *testing.T) {
	mw := RequireRole(model.RoleAdmin)

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, roleRequest(model.RoleAdmin))

	if !called {
		t.Error("handler should be called for allowed role")
	}
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRequireRole_MultipleRoles_AnyAllowed(t *testing.T) {
	mw := RequireRole(model.RoleReviewer, model.RoleAdmin)

	for _, role := range []model.Role{model.RoleReviewer, model.RoleAdmin} {
		w := httptest.NewRecorder()
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, roleRequest(role))

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("role %s: status = %d, want %d", role, w.Result().StatusCode, http.StatusOK)
		}
	}
}

func TestRequireRole_DisallowedRole_Returns403(t *testing.T) {
	mw := RequireRole(model.RoleAdmin)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, roleRequest(model.RoleSubmitter))

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRequireRole_NoProfile_Returns401(t *testing.T) {
	mw := RequireRole(model.RoleAdmin)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
