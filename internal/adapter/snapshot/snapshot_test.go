package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempSnapshot(t *testing.T) *FileSnapshot {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "persistence.json"), nil)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	snap := tempSnapshot(t)

	items := map[string]string{"foo": "bar", "empty": ""}
	require.NoError(t, snap.Save(items))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, items, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	snap := tempSnapshot(t)

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadEmptyFile(t *testing.T) {
	snap := tempSnapshot(t)
	require.NoError(t, os.WriteFile(snap.Path(), []byte("  \n\t"), 0o644))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadCorruptFile(t *testing.T) {
	snap := tempSnapshot(t)
	require.NoError(t, os.WriteFile(snap.Path(), []byte(`{"foo": `), 0o644))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadNullDocument(t *testing.T) {
	snap := tempSnapshot(t)
	require.NoError(t, os.WriteFile(snap.Path(), []byte("null"), 0o644))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestSaveOverwrites(t *testing.T) {
	snap := tempSnapshot(t)

	require.NoError(t, snap.Save(map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, snap.Save(map[string]string{"a": "3"}))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3"}, loaded)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	snap := tempSnapshot(t)
	require.NoError(t, snap.Save(map[string]string{"a": "1"}))

	entries, err := os.ReadDir(filepath.Dir(snap.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(snap.Path()), entries[0].Name())
}

func TestSaveNilMap(t *testing.T) {
	snap := tempSnapshot(t)
	require.NoError(t, snap.Save(nil))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
