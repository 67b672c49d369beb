package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"http://localhost:8080", "http://localhost:8080", true},
		{"HTTPS://Example.COM", "https://example.com", true},
		{"https://example.com/path?q=1", "https://example.com", true},
		{"not-a-url", "", false},
		{"http://", "", false},
		{"://missing-scheme", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := normalizeOrigin(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{" http://Allowed.example ", "bogus", ""}, discardLogger())
	require.Len(t, policy.allowed, 1)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"listed", "http://allowed.example", true},
		{"case-insensitive", "HTTP://ALLOWED.EXAMPLE", true},
		{"other host", "http://evil.example", false},
		{"other scheme", "https://allowed.example", false},
		{"missing", "", false},
		{"malformed", "allowed.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, policy.check(r))
		})
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, discardLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	require.True(t, policy.check(r))

	r.Header.Del("Origin")
	require.False(t, policy.check(r))
}
