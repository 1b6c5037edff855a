package harness

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	yaml "gopkg.in/yaml.v3"

	"github.com/stretchr/testify/require"

	"github.com/715d/reduxmapper/pkg/reduxmapper"
)

// LoadTestCase loads a test case from a directory with a specified testdata root.
func LoadTestCase(t *testing.T, dir, root string) *TestCase {
	t.Helper()
	yamlPath := filepath.Join(dir, "expected.yaml")

	tc := &TestCase{}
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	err = yaml.Unmarshal(data, tc)
	require.NoError(t, err)

	// Use relative path from testdata root if provided.
	if root != "" {
		relPath, err := filepath.Rel(root, dir)
		if err != nil {
			tc.Dir = filepath.Base(dir)
		} else {
			tc.Dir = relPath
		}
		return tc
	}

	tc.Dir = filepath.Base(dir)
	return tc
}

// Options converts the configuration into mapper options for the project in root.
func (c Configuration) Options(root string) reduxmapper.Options {
	return reduxmapper.Options{
		Root:            root,
		BasePath:        filepath.FromSlash(c.BasePath),
		MainAppPath:     filepath.FromSlash(c.MainAppPath),
		ContainerPaths:  fromSlash(c.ContainerPaths),
		ReduxPaths:      fromSlash(c.ReduxPaths),
		ActionFilenames: c.ActionFilenames,
		IgnorePaths:     c.IgnorePaths,
		SagaFilename:    c.SagaFilename,
		DisableCache:    c.DisableCache,
		Output:          io.Discard,
	}
}

func fromSlash(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.FromSlash(p)
	}
	return out
}
