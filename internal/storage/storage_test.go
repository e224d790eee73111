package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWebDirSwapsAdapter(t *testing.T) {
	prev := GetAdapter()
	t.Cleanup(func() { SetAdapter(prev) })

	SetAdapter(NewFilesystem("/tmp/a", "/assets"))
	assert.Equal(t, "/tmp/a", WebDir())

	SetWebDir("/tmp/b")
	assert.Equal(t, "/tmp/b", WebDir())

	fs, ok := GetAdapter().(*Filesystem)
	require.True(t, ok)
	assert.Equal(t, "/assets", fs.webURL)
}

func TestFilesystemStore(t *testing.T) {
	dir := t.TempDir()
	fs := NewFilesystem(dir, "/files/")

	url, err := fs.Store("../../marker.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "/files/marker.png", url)

	b, err := os.ReadFile(filepath.Join(dir, "marker.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))
}

func TestFilesystemStoreReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	fs := NewFilesystem(dir, "/files")

	_, err := fs.Store("broken.png", iotest.ErrReader(errors.New("disk gone")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write broken.png")

	// a directory in the way makes the create fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken.png"), 0755))
	_, err = fs.Store("taken.png", strings.NewReader("png"))
	assert.Error(t, err)
}
