package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"portpulse/internal/config"
)

func newTestVerifier() *Verifier {
	return NewVerifier(config.AuthConfig{
		Required: true,
		Keys:     []string{"pp_live_1", " pp_live_2 "},
		AdminKey: "pp_admin_root",
		DemoKey:  "dev_demo_123",
	})
}

func TestVerifyRoles(t *testing.T) {
	v := newTestVerifier()
	cases := []struct {
		key, method string
		role        Role
		err         error
	}{
		{"pp_admin_root", http.MethodDelete, RoleAdmin, nil},
		{"pp_live_2", http.MethodPost, RoleLive, nil},
		{"dev_demo_123", http.MethodGet, RoleDemo, nil},
		{"dev_demo_123", http.MethodHead, RoleDemo, nil},
		{"dev_demo_123", http.MethodPost, "", ErrReadOnly},
		{"", http.MethodGet, "", ErrMissingKey},
		{"nope", http.MethodGet, "", ErrInvalidKey},
		{"pp_admin_roo", http.MethodGet, "", ErrInvalidKey},
	}
	for _, c := range cases {
		p, err := v.Verify(c.key, c.method)
		if !errors.Is(err, c.err) {
			t.Fatalf("%s %s: err=%v want %v", c.method, c.key, err, c.err)
		}
		if p.Role != c.role {
			t.Fatalf("%s %s: role=%q want %q", c.method, c.key, p.Role, c.role)
		}
	}
}

func TestZeroVerifierRejects(t *testing.T) {
	var v Verifier
	if _, err := v.Verify("anything", http.MethodGet); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("zero verifier accepted a key: %v", err)
	}
}

func TestKeyFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/sources", nil)
	if KeyFromRequest(r) != "" {
		t.Fatalf("no headers should yield empty key")
	}
	r.Header.Set("Authorization", "Bearer pp_live_1")
	if got := KeyFromRequest(r); got != "pp_live_1" {
		t.Fatalf("bearer: got %q", got)
	}
	r.Header.Set("X-API-Key", "dev_demo_123")
	if got := KeyFromRequest(r); got != "dev_demo_123" {
		t.Fatalf("X-API-Key should win: got %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	if KeyFromRequest(r) != "" {
		t.Fatalf("non-bearer auth should be ignored")
	}
}
