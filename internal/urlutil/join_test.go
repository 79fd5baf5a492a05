package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		paths []string
		want  string
	}{
		{
			name:  "simple join",
			base:  "https://id.example.com",
			paths: []string{"userinfo"},
			want:  "https://id.example.com/userinfo",
		},
		{
			name:  "trailing slash on base",
			base:  "https://id.example.com/",
			paths: []string{"token"},
			want:  "https://id.example.com/token",
		},
		{
			name:  "leading slash on path",
			base:  "https://id.example.com/auth",
			paths: []string{"/v1", "token"},
			want:  "https://id.example.com/auth/v1/token",
		},
		{
			name:  "preserves trailing slash",
			base:  "https://id.example.com",
			paths: []string{"auth/"},
			want:  "https://id.example.com/auth/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithQuery(t *testing.T) {
	got, err := WithQuery("/login", "redirect", "/bookmarks", "share_url", "https://example.com/a?b=c")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=%2Fbookmarks&share_url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc", got)
}

func TestWithQueryKeepsExistingParams(t *testing.T) {
	got, err := WithQuery("/login?mode=otp", "redirect", "/")
	require.NoError(t, err)
	assert.Equal(t, "/login?mode=otp&redirect=%2F", got)
}

func TestWithQueryOddPairsPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = WithQuery("/login", "redirect")
	})
}
