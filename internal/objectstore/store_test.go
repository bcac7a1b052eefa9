package objectstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest runs the shared contract tests against any Store.
func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "bucket", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("head missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Head(ctx, "bucket", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get roundtrips", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "bucket", "kb.md", []byte("## Section\n\ncontent")))

		data, err := store.Get(ctx, "bucket", "kb.md")
		require.NoError(t, err)
		assert.Equal(t, "## Section\n\ncontent", string(data))
	})

	t.Run("put overwrites prior version", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "bucket", "kb.md", []byte("v1")))
		require.NoError(t, store.Put(ctx, "bucket", "kb.md", []byte("v2")))

		data, err := store.Get(ctx, "bucket", "kb.md")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))
	})

	t.Run("head reports size", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "bucket", "sized", []byte("12345")))

		meta, err := store.Head(ctx, "bucket", "sized")
		require.NoError(t, err)
		assert.Equal(t, int64(5), meta.Size)
		assert.False(t, meta.LastModified.IsZero())
	})

	t.Run("copy duplicates within bucket", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "bucket", "src", []byte("payload")))
		require.NoError(t, store.Copy(ctx, "bucket", "src", "dst"))

		data, err := store.Get(ctx, "bucket", "dst")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("copy missing source fails", func(t *testing.T) {
		err := store.Copy(ctx, "bucket", "nope", "dst2")
		assert.Error(t, err)
	})

	t.Run("delete removes object", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "bucket", "doomed", []byte("x")))
		require.NoError(t, store.Delete(ctx, "bucket", "doomed"))

		_, err := store.Get(ctx, "bucket", "doomed")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "bucket", "never-existed"))
	})
}

func TestFSStore_Contract(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	storeUnderTest(t, store)
}

func TestMemoryStore_Contract(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestFSStore_KeyWithSubdirectories(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "bucket", "corrections/issue-42", []byte("fix")))

	data, err := store.Get(ctx, "bucket", "corrections/issue-42")
	require.NoError(t, err)
	assert.Equal(t, "fix", string(data))
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "bucket", "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ClockControlsLastModified(t *testing.T) {
	store := NewMemoryStore()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return fixed }

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "bucket", "marker", []byte("ts")))

	meta, err := store.Head(ctx, "bucket", "marker")
	require.NoError(t, err)
	assert.Equal(t, fixed, meta.LastModified)
}
