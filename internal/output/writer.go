// Package output persists exported documents as pretty-printed JSON files.
package output

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/pretty"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
)

const (
	dirPerm  = 0755
	filePerm = 0644

	// FilePrefix is prepended to the endpoint name to build each file name
	FilePrefix = "rockset_"
)

// prettyOptions indents by two spaces and never collapses arrays onto one line.
// Key order is left as received.
var prettyOptions = &pretty.Options{
	Width:    -1,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: false,
}

// Writer writes one JSON file per endpoint under a directory
type Writer struct {
	fs  afero.Fs
	dir string
}

// NewWriter creates a writer rooted at dir on the given filesystem
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// NewOSWriter creates a writer on the real filesystem
func NewOSWriter(dir string) *Writer {
	return NewWriter(afero.NewOsFs(), dir)
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// EnsureDir creates the output directory if it does not exist
func (w *Writer) EnsureDir() error {
	if err := w.fs.MkdirAll(w.dir, dirPerm); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrTypeFileSystem, "failed to create output directory %s", w.dir)
	}

	return nil
}

// PathFor returns the file path used for an endpoint
func (w *Writer) PathFor(endpoint string) string {
	return filepath.Join(w.dir, FilePrefix+endpoint+".json")
}

// Write stores doc for the endpoint, replacing any previous file
func (w *Writer) Write(endpoint string, doc []byte) (string, error) {
	if !json.Valid(doc) {
		return "", apperrors.Newf(apperrors.ErrTypeRocksetAPI, "response for %s is not valid JSON", endpoint)
	}

	path := w.PathFor(endpoint)

	if err := afero.WriteFile(w.fs, path, Format(doc), filePerm); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrTypeFileSystem, "failed to write %s", path)
	}

	return path, nil
}

// Format pretty-prints a JSON document without a trailing newline
func Format(doc []byte) []byte {
	out := pretty.PrettyOptions(doc, prettyOptions)

	for len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}

	return out
}
