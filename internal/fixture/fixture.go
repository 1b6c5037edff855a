// Package fixture materializes txtar archives as source trees for tests.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// Extract writes every file of ar below dir, creating parent directories as needed.
func Extract(dir string, ar *txtar.Archive) error {
	for _, f := range ar.Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", f.Name, err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	return nil
}

// Tree extracts the txtar archive src into a fresh temporary directory and returns its path.
func Tree(t testing.TB, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, Extract(dir, txtar.Parse([]byte(src))))
	return dir
}

// Load extracts the txtar archive stored at path into a fresh temporary directory.
func Load(t testing.TB, path string) string {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, Extract(dir, ar))
	return dir
}
