// Package testutil provides shared test helpers for setting up graph stores and dataset directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/graphstore"
)

// TestDB creates a temporary file-backed graph store that is automatically cleaned up.
func TestDB(t *testing.T) *graphstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "walletgraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := graphstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDatasets creates a temporary dataset directory holding files and
// returns it with a dataset.FS rooted there.
func TestDatasets(t *testing.T, files map[string]string) (string, *dataset.FS) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := dataset.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
