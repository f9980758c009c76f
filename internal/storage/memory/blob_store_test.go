package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresCopy(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("https://a.example\n")

	uri, err := store.PutObject(context.Background(), "exports/list.txt", "text/plain", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://exports/list.txt", uri)

	payload[0] = 'X'
	got, ok := store.Get("exports/list.txt")
	require.True(t, ok)
	require.Equal(t, "https://a.example\n", string(got))
	require.Equal(t, 1, store.Len())
}

func TestGetMissingPath(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, ok := store.Get("nope")
	require.False(t, ok)
}
