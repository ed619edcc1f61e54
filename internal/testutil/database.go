package testutil

import (
	"path/filepath"
	"testing"
)

// NewTestDatabasePath returns a sqlite file path inside a per-test
// temporary directory. The directory is removed when the test completes.
func NewTestDatabasePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "grokteam-test.db")
}
