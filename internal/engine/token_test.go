package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenSourceNextInvalidatesPrevious(t *testing.T) {
	t.Parallel()

	var ts TokenSource
	first := ts.Next()
	require.True(t, ts.IsCurrent(first))

	second := ts.Next()
	require.False(t, ts.IsCurrent(first))
	require.True(t, ts.IsCurrent(second))
	require.Equal(t, second, ts.Current())
}

func TestTokenSourceInvalidate(t *testing.T) {
	t.Parallel()

	var ts TokenSource
	tok := ts.Next()
	ts.Invalidate()
	require.False(t, ts.IsCurrent(tok))
}

func TestTokenSourceConcurrentNextYieldsUniqueTokens(t *testing.T) {
	t.Parallel()

	var ts TokenSource
	const n = 100
	tokens := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = ts.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, tok := range tokens {
		require.False(t, seen[tok], "token %d issued twice", tok)
		seen[tok] = true
	}
}
