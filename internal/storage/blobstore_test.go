package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBlobStore_GetMissingReturnsNil(t *testing.T) {
	s := NewFileBlobStore(filepath.Join(t.TempDir(), "data"))

	data, err := s.Get("project-tracker:data:v2")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileBlobStore_PutThenGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := NewFileBlobStore(dir)

	require.NoError(t, s.Put("project-tracker:data:v2", []byte(`[]`)))
	require.NoError(t, s.Put("project-tracker:data:v2", []byte(`[{"id":"p1"}]`)))

	data, err := s.Get("project-tracker:data:v2")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1"}]`, string(data))

	assert.FileExists(t, filepath.Join(dir, "project-tracker_data_v2.json"))
	_, err = os.Stat(filepath.Join(dir, "project-tracker_data_v2.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestFileBlobStore_Delete(t *testing.T) {
	s := NewFileBlobStore(t.TempDir())

	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"))

	data, err := s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileBlobStore_PutFailsWhenDirIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	s := NewFileBlobStore(file)
	assert.Error(t, s.Put("k", []byte("v")))
}

func TestBlobFileName(t *testing.T) {
	cases := map[string]string{
		"project-tracker:data:v2": "project-tracker_data_v2.json",
		"../escape":               "_escape.json",
		"":                        "blob.json",
		"a/b c":                   "a_b_c.json",
	}
	for key, want := range cases {
		assert.Equal(t, want, blobFileName(key), "key %q", key)
	}
}
