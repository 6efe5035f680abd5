package prefstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcsoft/seqplay"
)

var _ seqplay.OverrideStore = (*Store)(nil)

func TestGetSetDelete(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("theme", "dark"))
	require.NoError(t, store.Set("theme", "light"))
	value, ok, err := store.Get("theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", value)

	require.NoError(t, store.Delete("theme"))
	_, ok, err = store.Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverrideSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "seqplay.db")

	store, err := Open(path)
	require.NoError(t, err)
	pref, err := seqplay.NewMotionPreference(store, nil)
	require.NoError(t, err)
	require.NoError(t, pref.SetOverride(true))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	value, ok, err := store.LoadOverride()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, value)

	restored, err := seqplay.NewMotionPreference(store, nil)
	require.NoError(t, err)
	assert.True(t, restored.ShouldSuppressMotion())

	require.NoError(t, restored.ClearOverride())
	_, ok, err = store.LoadOverride()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedOverrideIsUnset(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ReducedMotionKey, "maybe"))
	_, ok, err := store.LoadOverride()
	require.NoError(t, err)
	assert.False(t, ok)
}
