package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMapKeySetIsClosed(t *testing.T) {
	t.Parallel()

	// Map iteration order varies per build, so repeat enough times that a
	// mid-iteration insert would eventually surface as a double-encoded key.
	for i := 0; i < 500; i++ {
		m, err := BuildMap("https://www.example.co.uk/p?x=1#f", "vid123")
		require.NoError(t, err)

		for key := range m.values {
			require.False(t, strings.HasPrefix(key, encodePrefix+encodePrefix),
				"unexpected key %q", key)
		}
		_, ok := m.Lookup("ENCODE_ENCODE_FRAGMENT")
		require.False(t, ok)

		got, err := Render("[ENCODE_ENCODE_ENCODE_FRAGMENT]", "https://www.example.co.uk/p?x=1#f", "vid123")
		require.NoError(t, err)
		require.Empty(t, got)
	}
}

func TestBuildMapDomainSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		domainName string
		tld        string
		subdomain  string
	}{
		{"plain com", "https://example.com/x", "example", "com", ""},
		{"www com", "https://www.example.com/x", "example", "com", "www."},
		{"multi label suffix", "https://www.example.co.uk/x", "example", "co.uk", "www."},
		{"deep subdomain", "https://a.b.example.com/x", "example", "com", "a.b."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := BuildMap(tc.target, "")
			require.NoError(t, err)

			name, _ := m.Lookup(KeyDomainName)
			tld, _ := m.Lookup(KeyTLD)
			sub, _ := m.Lookup(KeySubdomain)
			require.Equal(t, tc.domainName, name)
			require.Equal(t, tc.tld, tld)
			require.Equal(t, tc.subdomain, sub)
		})
	}
}

func TestBuildMapNoSubdomainURL(t *testing.T) {
	t.Parallel()

	m, err := BuildMap("https://www.example.com/path?a=1", "")
	require.NoError(t, err)

	v, ok := m.Lookup(KeyNoSubdomainURL)
	require.True(t, ok)
	require.Equal(t, "example.com/path?a=1", v)
}

func TestBuildMapEncodedCounterparts(t *testing.T) {
	t.Parallel()

	m, err := BuildMap("https://example.com/a b", "")
	require.NoError(t, err)

	raw, ok := m.Lookup(KeyPath)
	require.True(t, ok)
	enc, ok := m.Lookup("ENCODE_" + KeyPath)
	require.True(t, ok)
	require.Equal(t, encodeComponent(raw), enc)
}

func TestBuildMapPortAndFragment(t *testing.T) {
	t.Parallel()

	m, err := BuildMap("https://example.com:8443/x#frag", "")
	require.NoError(t, err)

	port, _ := m.Lookup(KeyPort)
	require.Equal(t, ":8443", port)
	frag, _ := m.Lookup(KeyFragment)
	require.Equal(t, "#frag", frag)
	host, _ := m.Lookup(KeyHost)
	require.Equal(t, "example.com", host)
}

func TestEncodeComponent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"abcXYZ019", "abcXYZ019"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"https://e.com/?a=1", "https%3A%2F%2Fe.com%2F%3Fa%3D1"},
		{"a b", "a%20b"},
		{"100%", "100%25"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, encodeComponent(tc.in))
	}
}

func TestSplitDomainFallback(t *testing.T) {
	t.Parallel()

	// Single-label hosts cannot be classified by the suffix list.
	name, tld := splitDomain("localhost")
	require.Equal(t, "localhost", name)
	require.Empty(t, tld)
}
