// Package auth guards the lead administration routes and stores the CLI's
// admin session.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CookieName is the admin session cookie set by Login.
const CookieName = "admin_session"

var (
	ErrDisabled        = errors.New("admin login not configured (set ADMIN_PASSWORD and ADMIN_SECRET)")
	ErrInvalidPassword = errors.New("invalid password")
)

// Guard checks admin credentials. With no secret configured every request is
// allowed, which suits a daemon bound to localhost.
type Guard struct {
	password string
	secret   string
}

// NewGuard creates a guard. secret is the session token handed out on login.
func NewGuard(password, secret string) *Guard {
	return &Guard{password: password, secret: secret}
}

// Enabled reports whether admin routes require a session.
func (g *Guard) Enabled() bool {
	return g.secret != ""
}

// Login exchanges the admin password for the session token.
func (g *Guard) Login(password string) (string, error) {
	if !g.Enabled() || g.password == "" {
		return "", ErrDisabled
	}
	if !equal(password, g.password) {
		return "", ErrInvalidPassword
	}
	return g.secret, nil
}

// Authorized reports whether r carries the session token, either as a bearer
// token or as the session cookie.
func (g *Guard) Authorized(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && equal(token, g.secret) {
		return true
	}
	if c, err := r.Cookie(CookieName); err == nil && equal(c.Value, g.secret) {
		return true
	}
	return false
}

// Require wraps next so it only runs for authorized requests.
func (g *Guard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.Authorized(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r)
	}
}

// SessionCookie builds the cookie returned after a successful login.
func SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Credentials is the CLI's stored admin session.
type Credentials struct {
	Token     string `json:"token"`
	CreatedAt int64  `json:"created_at"`
}

// Manager persists the CLI admin session.
type Manager struct {
	configDir   string
	credentials *Credentials
	mu          sync.RWMutex
}

// NewManager creates a manager that keeps credentials under configDir.
func NewManager(configDir string) (*Manager, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	m := &Manager{configDir: configDir}
	_ = m.loadCredentials()
	return m, nil
}

// Token returns the stored session token, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credentials == nil {
		return ""
	}
	return m.credentials.Token
}

// Save stores a session token.
func (m *Manager) Save(token string) error {
	m.mu.Lock()
	m.credentials = &Credentials{Token: token, CreatedAt: time.Now().Unix()}
	m.mu.Unlock()
	return m.saveCredentials()
}

// Logout removes the stored session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.credentials = nil
	m.mu.Unlock()

	if err := os.Remove(m.credentialsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func (m *Manager) credentialsPath() string {
	return filepath.Join(m.configDir, "credentials.json")
}

func (m *Manager) loadCredentials() error {
	data, err := os.ReadFile(m.credentialsPath())
	if err != nil {
		return err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}

	m.mu.Lock()
	m.credentials = &creds
	m.mu.Unlock()
	return nil
}

func (m *Manager) saveCredentials() error {
	m.mu.RLock()
	creds := m.credentials
	m.mu.RUnlock()

	if creds == nil {
		return nil
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.credentialsPath(), data, 0600)
}
