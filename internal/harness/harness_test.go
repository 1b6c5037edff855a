package harness

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/pkg/reduxmapper"
)

// TestAll runs all fixture projects.
func TestAll(t *testing.T) {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "get current file path")

	harnessDir := filepath.Dir(filename)
	testdataDir := filepath.Join(harnessDir, "..", "..", "testdata")

	testCases := discoverTestCases(t, testdataDir)
	require.NotEmpty(t, testCases, "no test cases found")

	if testing.Verbose() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	for _, tc := range testCases {
		t.Run(tc.Dir, func(t *testing.T) {
			t.Parallel()
			if tc.Description != "" {
				t.Log(tc.Description)
			}

			result := NewHarness(testdataDir).Run(t, tc)
			if !result.Success {
				t.Errorf("Test failed: %s", result.Message)
			}
		})
	}
}

func TestValidateResult_ReportsMismatches(t *testing.T) {
	cfg := Configuration{
		Name:               "mismatch",
		ExpectedGlobal:     []string{"session"},
		ExpectedContainers: map[string][]string{"./a.js": {"todos"}},
	}
	res := &reduxmapper.Result{
		Containers: []reduxmapper.ContainerUsage{
			{Key: "./a.js", Reducers: []analysis.Reducer{{Name: "users"}}},
			{Key: "./b.js"},
		},
	}
	result := validateResult("/project", cfg, res)
	require.False(t, result.Success)
	require.ElementsMatch(t, []string{
		"[global] Should have used reducer: session",
		"[./a.js] Should have used reducer: todos",
		"[./a.js] Should not have used reducer: users",
		"Unexpected container: ./b.js",
	}, result.Details)
}

func discoverTestCases(t *testing.T, root string) []*TestCase {
	t.Helper()

	// Read all directories in testdata.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)

	var testCases []*TestCase
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())

		// Check if this directory has an expected.yaml.
		if _, err := os.Stat(filepath.Join(dir, "expected.yaml")); err == nil {
			testCases = append(testCases, LoadTestCase(t, dir, root))
		}
	}

	return testCases
}
