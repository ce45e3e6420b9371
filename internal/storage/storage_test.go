package storage

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestStore(t *testing.T, maxSize int64) (*FileStore, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/uploads", maxSize)
	require.NoError(t, err)
	return store, fs
}

func TestFileStore_SaveOpenRemove(t *testing.T) {
	store, fs := newTestStore(t, 1024)

	stored, err := store.Save("notes.txt", strings.NewReader("remember the milk"))
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", stored.OriginalName)
	assert.Equal(t, "text/plain", stored.MimeType)
	assert.Equal(t, int64(17), stored.Size)
	assert.Equal(t, ".txt", filepath.Ext(stored.FileName))
	assert.Equal(t, filepath.Join("/uploads", stored.FileName), stored.Path)

	f, err := store.Open(stored.Path)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, "remember the milk", string(content))

	require.NoError(t, store.Remove(stored.Path))
	exists, err := afero.Exists(fs, stored.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	// Removing twice is fine.
	assert.NoError(t, store.Remove(stored.Path))
}

func TestFileStore_DetectsImages(t *testing.T) {
	store, _ := newTestStore(t, 1024)

	stored, err := store.Save("diagram.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", stored.MimeType)
}

func TestFileStore_Rejections(t *testing.T) {
	store, fs := newTestStore(t, 16)

	_, err := store.Save("setup.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrDangerousExtension)

	_, err = store.Save("big.txt", strings.NewReader(strings.Repeat("a", 64)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = store.Save("empty.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = store.Save("archive.bin", bytes.NewReader([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	assert.ErrorIs(t, err, ErrFileTypeNotAllowed)

	entries, err := afero.ReadDir(fs, "/uploads")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_RefusesPathsOutsideRoot(t *testing.T) {
	store, _ := newTestStore(t, 16)

	_, err := store.Open("/etc/passwd")
	assert.Error(t, err)
	assert.Error(t, store.Remove("/uploads/../etc/passwd"))
}
