// Package auth guards the admin endpoints with HTTP Basic credentials
// checked against a bcrypt hash.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"statuspage/app/internal/ratelimit"
	"statuspage/app/internal/security"
)

const realm = `Basic realm="statuspage admin", charset="UTF-8"`

// Auth holds the admin credentials.
type Auth struct {
	User string
	Hash []byte

	// Failures, when set, throttles clients that keep sending bad credentials.
	Failures *ratelimit.Limiter
}

// NewAuth creates a new Auth instance
func NewAuth(user string, hash []byte, failures *ratelimit.Limiter) *Auth {
	return &Auth{User: user, Hash: hash, Failures: failures}
}

// Enabled reports whether admin credentials are configured.
func (a *Auth) Enabled() bool {
	return a != nil && a.User != "" && len(a.Hash) > 0
}

// CheckCredentials verifies a username and password.
func (a *Auth) CheckCredentials(user, pass string) bool {
	if !a.Enabled() || user == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.Hash, []byte(pass)) == nil
	return userOK && passOK
}

// RequireAuth is middleware that requires admin Basic credentials.
// With no credentials configured every request is refused.
func (a *Auth) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeError(w, http.StatusForbidden, "admin access is disabled")
			return
		}
		ip := security.ClientIP(r)
		if a.Failures != nil && a.Failures.Remaining(ip) <= 0 {
			writeError(w, http.StatusTooManyRequests, a.Failures.ErrorMessage())
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !a.CheckCredentials(user, pass) {
			if a.Failures != nil {
				a.Failures.Allow(ip)
			}
			w.Header().Set("WWW-Authenticate", realm)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if a.Failures != nil {
			a.Failures.Reset(ip)
		}
		next(w, r)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": msg})
}
