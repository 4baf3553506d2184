package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathMatcher_Defaults(t *testing.T) {
	m := MustPathMatcher(DefaultProtectedPatterns, DefaultPublicPatterns)

	tests := []struct {
		path string
		want bool
	}{
		{"/admin", true},
		{"/admin/", true},
		{"/admin/users/42", true},
		{"/api/admin/me", true},
		{"/api/admin/a/b/c", true},
		{"/admin/../login", true},
		{"/login/../admin", true},
		{"/login", false},
		{"/api/auth/login", false},
		{"/api/auth/validate", false},
		{"/api/auth/logout", false},
		{"/api/admin", false},
		{"/administrator", false},
		{"/", false},
		{"", false},
		{"/healthz", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Protected(tt.path), tt.path)
	}
}

func TestPathMatcher_AllowListWins(t *testing.T) {
	m, err := NewPathMatcher([]string{"/api/*"}, []string{"/api/auth/*", "/api/public-?"})
	require.NoError(t, err)

	assert.True(t, m.Protected("/api/orders"))
	assert.False(t, m.Protected("/api/auth/login"))
	assert.False(t, m.Protected("/api/public-1"))
	assert.True(t, m.Protected("/api/public-10"))
	assert.True(t, m.Public("/api/auth/anything"))
}

func TestNewPathMatcher_RejectsBadPatterns(t *testing.T) {
	_, err := NewPathMatcher([]string{"admin"}, nil)
	assert.Error(t, err)

	_, err = NewPathMatcher(nil, []string{"/login["})
	assert.Error(t, err)
}
