package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[Kind]Backend {
	t.Helper()
	out := make(map[Kind]Backend)
	for _, kind := range []Kind{KindNative, KindWeb, KindMemory} {
		b, err := Open(kind, t.TempDir())
		require.NoError(t, err, kind)
		t.Cleanup(func() { _ = b.Close() })
		out[kind] = b
	}
	return out
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, b := range openAll(t) {
		t.Run(string(kind), func(t *testing.T) {
			_, ok, err := b.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(ctx, "auth_token", "tok1"))
			require.NoError(t, b.Set(ctx, "auth_token", "tok2"))

			v, ok, err := b.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tok2", v)

			require.NoError(t, b.Delete(ctx, "auth_token"))
			require.NoError(t, b.Delete(ctx, "auth_token"))

			_, ok, err = b.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSyncReaderAvailability(t *testing.T) {
	backends := openAll(t)

	_, ok := backends[KindNative].(SyncReader)
	assert.False(t, ok, "native backend must not offer synchronous reads")

	_, ok = backends[KindWeb].(SyncReader)
	assert.True(t, ok)

	_, ok = backends[KindMemory].(SyncReader)
	assert.False(t, ok, "memory backend must not offer synchronous reads")
}

func TestSecureStoreSealsValuesAtRest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenSecure(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "auth_token", "very-secret-token"))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(filepath.Join(dir, secureDBName))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "very-secret-token"))

	info, err := os.Stat(filepath.Join(dir, secretName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := OpenSecure(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "very-secret-token", v)
}

func TestSecureStoreRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, secretName), []byte("short"), 0600))

	_, err := OpenSecure(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestLocalStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenLocal(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "tutorial_completed", "true"))
	require.NoError(t, s.Close())

	_, _, err = s.GetSync("tutorial_completed")
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenLocal(dir)
	require.NoError(t, err)
	v, ok, err := reopened.GetSync("tutorial_completed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestLocalStoreSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := OpenLocal(dir)
	require.NoError(t, err)
	b, err := OpenLocal(dir)
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "auth_token", "tok"))

	v, ok, err := b.GetSync("auth_token")
	require.NoError(t, err)
	assert.True(t, ok, "second instance must see the first one's write")
	assert.Equal(t, "tok", v)

	// b's write must keep a's token instead of replacing the document
	require.NoError(t, b.Set(ctx, "tutorial_completed", "true"))

	v, ok, err = a.Get(ctx, "tutorial_completed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	fresh, err := OpenLocal(dir)
	require.NoError(t, err)
	v, ok, err = fresh.GetSync("auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	require.NoError(t, a.Delete(ctx, "auth_token"))
	_, ok, err = b.GetSync("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err = b.GetSync("tutorial_completed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestSecureStoreMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenSecure(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "auth_token", "tok"))
	require.NoError(t, s.Close())

	reopened, err := OpenSecure(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	v, ok, err := reopened.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	var version int64
	err = reopened.db.QueryRowContext(ctx, "SELECT MAX(version_id) FROM goose_db_version").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, RunMigrations(ctx, reopened.db))
}

func TestSealerRejectsTampering(t *testing.T) {
	s := NewSealer([]byte("secret"), []byte("0123456789abcdef"))
	sealed, err := s.Seal([]byte("tok"))
	require.NoError(t, err)

	other := NewSealer([]byte("other"), []byte("0123456789abcdef"))
	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = s.Open("AAAA")
	assert.Error(t, err)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(Kind("cloud"), t.TempDir())
	assert.Error(t, err)
}
