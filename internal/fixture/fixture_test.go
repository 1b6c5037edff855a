package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	dir := Tree(t, `comment line
-- app/index.js --
import './store';
-- app/store/index.js --
export default {};
`)

	data, err := os.ReadFile(filepath.Join(dir, "app", "index.js"))
	require.NoError(t, err)
	require.Equal(t, "import './store';\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "app", "store", "index.js"))
	require.NoError(t, err)
	require.Equal(t, "export default {};\n", string(data))
}

func TestLoad(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "tree.txtar")
	require.NoError(t, os.WriteFile(archive, []byte("-- a/b.js --\nx\n"), 0o644))

	dir := Load(t, archive)
	require.FileExists(t, filepath.Join(dir, "a", "b.js"))
}
