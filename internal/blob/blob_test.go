package blob

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "files")
	s := New(root)

	path, err := s.Write([]byte("Hello Webstack!"))
	require.NoError(t, err)

	assert.Equal(t, root, filepath.Dir(path))
	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!", string(got))
}

func TestStore_WriteUsesUniqueNames(t *testing.T) {
	s := New(t.TempDir())

	a, err := s.Write([]byte("a"))
	require.NoError(t, err)
	b, err := s.Write([]byte("a"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStore_WriteAtOverwrites(t *testing.T) {
	s := New(t.TempDir())
	path, err := s.Write([]byte("src"))
	require.NoError(t, err)

	thumb := DerivativePath(path, 250)
	require.NoError(t, s.WriteAt(thumb, []byte("first")))
	require.NoError(t, s.WriteAt(thumb, []byte("second")))

	got, err := os.ReadFile(thumb)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")
}

func TestStore_ReadMissing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Read(filepath.Join(s.Root(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDerivativePath(t *testing.T) {
	assert.Equal(t, "/tmp/files_manager/abc_500", DerivativePath("/tmp/files_manager/abc", 500))
}
