package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestGuardLogin(t *testing.T) {
	g := NewGuard("hunter2", "tok-123")

	if _, err := g.Login("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
	token, err := g.Login("hunter2")
	if err != nil || token != "tok-123" {
		t.Errorf("Login = %q, %v", token, err)
	}

	if _, err := NewGuard("", "").Login("x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestGuardRequire(t *testing.T) {
	g := NewGuard("pw", "tok-123")
	h := g.Require(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok-123") }, http.StatusNoContent},
		{"cookie", func(r *http.Request) { r.AddCookie(SessionCookie("tok-123")) }, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/leads", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestGuardDisabledAllowsAll(t *testing.T) {
	g := NewGuard("", "")
	if g.Enabled() {
		t.Fatal("guard without secret must be disabled")
	}
	if !g.Authorized(httptest.NewRequest(http.MethodGet, "/leads", nil)) {
		t.Error("disabled guard must authorize every request")
	}
}

func TestManagerPersistsToken(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cc")

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.Token() != "" {
		t.Error("expected no token initially")
	}
	if err := m.Save("tok-123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	if err != nil {
		t.Fatalf("credentials file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credentials mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded, _ := NewManager(dir)
	if reloaded.Token() != "tok-123" {
		t.Errorf("reloaded token = %q", reloaded.Token())
	}

	if err := reloaded.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if again, _ := NewManager(dir); again.Token() != "" {
		t.Error("token must be gone after logout")
	}
}
