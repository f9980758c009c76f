package variant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMirrorHost(t *testing.T) {
	t.Parallel()

	require.True(t, IsMirrorHost("archive.today"))
	require.True(t, IsMirrorHost("ARCHIVE.PH"))
	require.False(t, IsMirrorHost("example.com"))
	require.False(t, IsMirrorHost("archive.example"))
}

func TestGroupFansOutAcrossMirrors(t *testing.T) {
	t.Parallel()

	group := Group("https://archive.ph/newest/https://example.com/a?b=1")
	require.Len(t, group, len(MirrorHosts))
	for i, u := range group {
		require.True(t, strings.HasPrefix(u, "https://"+MirrorHosts[i]+"/"), "entry %d: %s", i, u)
		require.True(t, strings.HasSuffix(u, "/newest/https://example.com/a?b=1"))
	}
}

func TestGroupNonMirrorReturnsNil(t *testing.T) {
	t.Parallel()

	require.Nil(t, Group("https://example.com/a"))
	require.Nil(t, Group("://bad"))
}

func TestGroupKeyIgnoresHost(t *testing.T) {
	t.Parallel()

	k1, ok := GroupKey("https://archive.ph/x?y=1#z")
	require.True(t, ok)
	k2, ok := GroupKey("https://archive.today/x?y=1#z")
	require.True(t, ok)
	require.Equal(t, k1, k2)

	k3, ok := GroupKey("https://archive.ph/other")
	require.True(t, ok)
	require.NotEqual(t, k1, k3)
}

func TestDeduperAdmitsFirstGroupOnly(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	require.True(t, d.Admit("https://archive.ph/x"))
	require.False(t, d.Admit("https://archive.today/x"))
	require.False(t, d.Admit("https://archive.ph/x"))
	require.True(t, d.Admit("https://archive.ph/y"))
}
