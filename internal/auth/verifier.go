// Package auth resolves API keys to principals.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"portpulse/internal/config"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleLive  Role = "live"
	// RoleDemo may only read.
	RoleDemo Role = "demo"
)

var (
	ErrMissingKey = errors.New("api key missing")
	ErrInvalidKey = errors.New("api key invalid")
	// ErrReadOnly is returned for a demo key on a non-read method.
	ErrReadOnly = errors.New("demo key is read-only")
)

type Principal struct {
	Role Role
	// KeyPrefix is a short, loggable prefix of the presented key.
	KeyPrefix string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Verifier checks presented keys against the configured key sets. The zero
// value rejects everything.
type Verifier struct {
	Required bool
	adminKey []byte
	liveKeys [][]byte
	demoKey  []byte
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	v := &Verifier{Required: cfg.Required}
	if cfg.AdminKey != "" {
		v.adminKey = []byte(cfg.AdminKey)
	}
	for _, k := range cfg.Keys {
		if k = strings.TrimSpace(k); k != "" {
			v.liveKeys = append(v.liveKeys, []byte(k))
		}
	}
	if cfg.DemoKey != "" {
		v.demoKey = []byte(cfg.DemoKey)
	}
	return v
}

// KeyFromRequest reads X-API-Key, falling back to Authorization: Bearer.
func KeyFromRequest(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Verify resolves key for the given HTTP method.
func (v *Verifier) Verify(key, method string) (Principal, error) {
	if key == "" {
		return Principal{}, ErrMissingKey
	}
	b := []byte(key)
	p := Principal{KeyPrefix: prefix(key)}
	switch {
	case v.adminKey != nil && equal(b, v.adminKey):
		p.Role = RoleAdmin
		return p, nil
	case v.isLive(b):
		p.Role = RoleLive
		return p, nil
	case v.demoKey != nil && equal(b, v.demoKey):
		if method != http.MethodGet && method != http.MethodHead {
			return Principal{}, ErrReadOnly
		}
		p.Role = RoleDemo
		return p, nil
	}
	return Principal{}, ErrInvalidKey
}

func (v *Verifier) isLive(b []byte) bool {
	found := false
	for _, k := range v.liveKeys {
		if equal(b, k) {
			found = true
		}
	}
	return found
}

func equal(a, b []byte) bool { return subtle.ConstantTimeCompare(a, b) == 1 }

func prefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
