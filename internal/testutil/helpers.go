package testutil

import (
	"testing"

	"github.com/spf13/afero"
)

// ReadFile reads a file from fs, failing the test when it is missing
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}

	return string(data)
}

// FileExists reports whether path exists on fs
func FileExists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("failed to stat %s: %v", path, err)
	}

	return exists
}
