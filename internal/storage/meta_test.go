package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := NewWorldMeta("Долина", 42, 28800)

	id, err := meta.UUID()
	require.NoError(t, err)

	require.NoError(t, SaveMeta(dir, meta))

	loaded, err := LoadMeta(dir)
	require.NoError(t, err)
	assert.Equal(t, meta, loaded)

	loadedID, err := loaded.UUID()
	require.NoError(t, err)
	assert.Equal(t, id, loadedID)

	_, err = os.Stat(filepath.Join(dir, MetaFileName+".tmp"))
	assert.ErrorIs(t, err, fs.ErrNotExist, "временный файл не должен оставаться")
}

func TestLoadMetaErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMeta(dir)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFileName), []byte("id: not-a-uuid\nname: x\n"), 0644))
	_, err = LoadMeta(dir)
	assert.Error(t, err)
}
