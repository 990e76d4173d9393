package modelstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T, keep int) *Store {
	cfg := config.ModelStoreConfig{Dir: filepath.Join(t.TempDir(), "models"), Name: "bpr", Keep: keep}
	return New(cfg, logger.NewTestLogger(t))
}

// ==========================
// Save / Load Tests
// ==========================

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	_, ok, err := store.Latest()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, store.Exists())

	meta1, err := store.Save(ctx, []byte("first"), map[string]string{"factors": "8"})
	require.NoError(t, err)
	assert.Equal(t, 1, meta1.Version)
	assert.Len(t, meta1.SHA256, 64)
	assert.FileExists(t, store.Path(1))

	meta2, err := store.Save(ctx, []byte("second"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, meta2.Version)

	got, payload, err := store.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, []byte("second"), payload)

	got, payload, err = store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "8", got.Attributes["factors"])
	assert.Equal(t, []byte("first"), payload)

	versions, err := store.Versions()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
	assert.True(t, store.Exists())
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t, 0)

	_, _, err := store.Load(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrModelNotFound)

	_, _, err = store.Load(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrModelNotFound)
}

func TestStore_LoadCorrupted(t *testing.T) {
	store := newTestStore(t, 0)
	_, err := store.Save(context.Background(), []byte("payload"), nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(1), []byte("not gzip"), 0o644))

	_, _, err = store.Load(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeModelCorrupted))
}

func TestStore_IgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t, 0)
	_, err := store.Save(context.Background(), []byte("x"), nil)
	require.NoError(t, err)

	dir := filepath.Dir(store.Path(1))
	for _, name := range []string{"other_v9.gob.gz", "bpr_v3.gob", ".bpr-123.tmp", "bpr_vx.gob.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("junk"), 0o644))
	}

	versions, err := store.Versions()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
}

func TestStore_SaveCancelledContext(t *testing.T) {
	store := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, []byte("x"), nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeModelPersistFailed))
	assert.False(t, store.Exists())
}

// ==========================
// Prune Tests
// ==========================

func TestStore_PruneKeepsNewest(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := store.Save(ctx, []byte{byte(i)}, nil)
		require.NoError(t, err)
	}

	versions, err := store.Versions()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, versions)

	meta, err := store.Save(ctx, []byte("next"), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, meta.Version, "numbering continues after pruning")
}

func TestStore_KeepZeroRetainsAll(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := store.Save(ctx, []byte{byte(i)}, nil)
		require.NoError(t, err)
	}

	versions, err := store.Versions()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, versions)
}
