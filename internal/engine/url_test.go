package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURLAddsSchemeAndStripsWWW(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare host", "example.com", "https://example.com"},
		{"www stripped", "https://www.example.com", "https://example.com"},
		{"whitespace trimmed", "  example.com  ", "https://example.com"},
		{"root path dropped", "https://example.com/", "https://example.com"},
		{"deep path kept", "https://example.com/a/b", "https://example.com/a/b"},
		{"port preserved", "https://www.example.com:8443/x", "https://example.com:8443/x"},
		{"query preserved", "example.com/watch?v=abc123", "https://example.com/watch?v=abc123"},
		{"http scheme kept", "http://example.com", "http://example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"www.example.com/path?q=1#frag",
		"http://sub.example.co.uk:8080/",
		"example.com",
	}
	for _, in := range inputs {
		first, err := NormalizeURL(in)
		require.NoError(t, err)
		second, err := NormalizeURL(first)
		require.NoError(t, err)
		require.Equal(t, first, second, "normalizing %q twice changed the result", in)
	}
}

func TestNormalizeURLRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("   ")
	require.Error(t, err)
}

func TestVideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://example.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no v param", "https://example.com/watch?id=123", ""},
		{"no query", "https://example.com/path", ""},
		{"v among others", "https://example.com/watch?list=PL1&v=abc&t=10", "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, VideoID(tc.url))
		})
	}
}
