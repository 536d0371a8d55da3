package output

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
)

func TestEnsureDirIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "rockset_org")

	require.NoError(t, w.EnsureDir())
	require.NoError(t, w.EnsureDir())

	isDir, err := afero.IsDir(fs, "rockset_org")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestPathFor(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs(), "out")
	assert.Equal(t, filepath.Join("out", "rockset_ws.json"), w.PathFor("ws"))
	assert.Equal(t, "out", w.Dir())
}

func TestWritePrettyPrints(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "out")
	require.NoError(t, w.EnsureDir())

	path, err := w.Write("users", []byte(`{"data":[{"email":"a@example.com","roles":["admin","member"]}],"empty":[],"obj":{}}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "rockset_users.json"), path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	expected := `{
  "data": [
    {
      "email": "a@example.com",
      "roles": [
        "admin",
        "member"
      ]
    }
  ],
  "empty": [],
  "obj": {}
}`
	assert.Equal(t, expected, string(data))
}

func TestFormatKeepsKeyOrder(t *testing.T) {
	out := Format([]byte(`{"zeta":1,"alpha":2,"mid":{"b":true,"a":null}}`))

	assert.Equal(t, `{
  "zeta": 1,
  "alpha": 2,
  "mid": {
    "b": true,
    "a": null
  }
}`, string(out))
}

func TestFormatKeepsUnicode(t *testing.T) {
	out := Format([]byte(`{"name":"café ☕"}`))
	assert.Contains(t, string(out), "café ☕")
}

func TestWriteRejectsInvalidJSON(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs(), "out")

	_, err := w.Write("views", []byte(`{"data": [`))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRocksetAPI))
}

func TestWriteFailsOnReadOnlyFs(t *testing.T) {
	w := NewWriter(afero.NewReadOnlyFs(afero.NewMemMapFs()), "out")

	_, err := w.Write("views", []byte(`{}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFileSystem))
}

func TestWriteOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "out")
	require.NoError(t, w.EnsureDir())

	_, err := w.Write("lambdas", []byte(`{"data":[1,2,3]}`))
	require.NoError(t, err)
	_, err = w.Write("lambdas", []byte(`{"data":[]}`))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, w.PathFor("lambdas"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"data\": []\n}", string(data))
}
