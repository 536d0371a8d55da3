package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestCatalog creates an initialized catalog in a temporary directory.
// The catalog is closed when the test finishes.
func NewTestCatalog(t *testing.T) *DuckDBCatalog {
	t.Helper()

	catalog, err := NewDuckDBCatalog(filepath.Join(t.TempDir(), "catalog.duckdb"))
	if err != nil {
		t.Fatalf("failed to create test catalog: %v", err)
	}

	t.Cleanup(func() {
		if err := catalog.Close(); err != nil {
			t.Errorf("failed to close test catalog: %v", err)
		}
	})

	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test catalog: %v", err)
	}

	return catalog
}
