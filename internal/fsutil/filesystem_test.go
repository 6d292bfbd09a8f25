package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	var fsys FileSystem = OSFileSystem{}
	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size())

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestMemoryFileSystem(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	src := []byte("hello")
	m.WriteFile("dir/../cfg.json", src)
	src[0] = 'j'

	data, err := m.ReadFile("cfg.json")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data), "stored data is a copy")

	info, err := m.Stat("./cfg.json")
	require.NoError(t, err)
	assert.Equal(t, "cfg.json", info.Name())
	assert.Equal(t, int64(5), info.Size())
	assert.False(t, info.IsDir())

	_, err = m.ReadFile("missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = m.Stat("missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
