package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetUnsetKeyReturnsEmpty(t *testing.T) {
	store := openTestStore(t)

	value, err := store.Get(context.Background(), "never-set")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetGetRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", "value"))

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestSetReplacesExistingValue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", "old"))
	require.NoError(t, store.Set(ctx, "key", "new"))

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestBackendURLPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetBackendURL(ctx, "https://vision.example.test"))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	url, err := reopened.BackendURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://vision.example.test", url)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sightline")

	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "k", "v"))
}
