package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"http://localhost:3000"}, "", true},
		{"exact match", []string{"http://localhost:3000"}, "http://localhost:3000", true},
		{"case and path ignored", []string{"HTTP://LocalHost:3000/"}, "http://localhost:3000/chat", true},
		{"port mismatch", []string{"http://localhost:3000"}, "http://localhost:3001", false},
		{"scheme mismatch", []string{"http://localhost:3000"}, "https://localhost:3000", false},
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"empty list", nil, "http://localhost:3000", false},
		{"invalid configured origin skipped", []string{"not-a-url", "http://ok.example"}, "http://ok.example", true},
		{"unparsable request origin", []string{"http://ok.example"}, "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed)
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, policy.checkOrigin(r))
		})
	}
}

func TestNormalizeOrigins(t *testing.T) {
	origins, allowAll := normalizeOrigins([]string{" http://A.example ", "", "*", "nope"})
	assert.True(t, allowAll)
	assert.Equal(t, []string{"http://a.example"}, origins)

	origins, allowAll = normalizeOrigins(nil)
	assert.False(t, allowAll)
	assert.Empty(t, origins)
}
