// Package testutil provides common constants and utilities for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second
)

// Common test strings
const (
	// TestAPIKey is a placeholder Rockset API key
	TestAPIKey = "test-api-key-0000"

	// TestAPIServer is the API host used by tests
	TestAPIServer = "api.test.rockset.com"

	// TestWorkspace is a default workspace name
	TestWorkspace = "commons"

	// TestOutputDir is the output directory used with in-memory filesystems
	TestOutputDir = "rockset_org"

	// RollupErrorMessage mimics the API message for DESCRIBE on a rollup
	RollupErrorMessage = "DESCRIBE is not supported on rollup collections. Query the source collection instead."
)
