package harness

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/pkg/reduxmapper"
)

// TestHarness manages test execution.
type TestHarness struct {
	// root is the root directory for test data
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// Run executes a test case with all its configurations.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.NotEmpty(t, tc.Configurations, "test case has no configurations")

	var results []ConfigurationResult
	var allSuccess = true

	for _, cfg := range tc.Configurations {
		cfgResult := h.runConfiguration(t, tc, cfg)
		results = append(results, *cfgResult)
		if !cfgResult.Success {
			allSuccess = false
		}
	}

	// Create overall result message.
	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.Configurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n  ")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.Configurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

// runConfiguration maps the project once with the options of cfg.
func (h *TestHarness) runConfiguration(t *testing.T, tc *TestCase, cfg Configuration) *ConfigurationResult {
	t.Helper()
	dir := filepath.Join(h.root, tc.Dir)

	m, err := reduxmapper.New(cfg.Options(dir))
	require.NoError(t, err)
	result, err := m.Run(t.Context())

	if cfg.ExpectedError != 0 {
		return checkError(cfg, err)
	}
	if err != nil {
		return &ConfigurationResult{
			Configuration: cfg,
			Message:       fmt.Sprintf("Unexpected error: %v", err),
		}
	}
	return validateResult(dir, cfg, result)
}

func checkError(cfg Configuration, err error) *ConfigurationResult {
	want := reduxmapper.Code(cfg.ExpectedError)
	got, ok := reduxmapper.CodeOf(err)
	if ok && got == want {
		return &ConfigurationResult{
			Configuration: cfg,
			Success:       true,
			Message:       fmt.Sprintf("Got expected error: %v", err),
		}
	}
	return &ConfigurationResult{
		Configuration: cfg,
		Message:       fmt.Sprintf("Expected error %q, got %v", want.Name(), err),
	}
}

// ConfigurationResult represents the result of running a single configuration.
type ConfigurationResult struct {
	// Configuration is the configuration that was run.
	Configuration Configuration

	// Result is the raw result from the mapper.
	Result *reduxmapper.Result

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details provides detailed information about failures for this configuration.
	Details []string
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// ConfigurationResults contains results for each configuration.
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed)
	Success bool

	// Message provides a summary of the result.
	Message string
}

// validateResult compares the mapping of the project in dir with the expectations of cfg.
func validateResult(dir string, cfg Configuration, result *reduxmapper.Result) *ConfigurationResult {
	cfgResult := &ConfigurationResult{
		Configuration: cfg,
		Result:        result,
	}

	var details []string
	details = append(details, compareNames("global", cfg.ExpectedGlobal, names(result.Global))...)

	actual := make(map[string][]string, len(result.Containers))
	for _, c := range result.Containers {
		actual[c.Key] = names(c.Reducers)
	}
	for _, key := range slices.Sorted(maps.Keys(cfg.ExpectedContainers)) {
		got, found := actual[key]
		if !found {
			details = append(details, "Container not found: "+key)
			continue
		}
		details = append(details, compareNames(key, cfg.ExpectedContainers[key], got)...)
	}
	for _, key := range slices.Sorted(maps.Keys(actual)) {
		if _, found := cfg.ExpectedContainers[key]; !found {
			details = append(details, "Unexpected container: "+key)
		}
	}

	for _, r := range result.Reducers {
		want := cfg.ExpectedSagas[r.Name]
		got := ""
		if r.SagaFile != "" {
			got = relative(dir, r.SagaFile)
		}
		if want != got {
			details = append(details, fmt.Sprintf("Saga mismatch for %s: expected %q, got %q", r.Name, want, got))
		}
	}

	cfgResult.Details = details
	cfgResult.Success = len(details) == 0
	if cfgResult.Success {
		cfgResult.Message = fmt.Sprintf("Mapping of %d containers matches", len(result.Containers))
	} else {
		cfgResult.Message = fmt.Sprintf("Test failed: %d mismatches", len(details))
	}
	return cfgResult
}

// compareNames reports reducers expected but not used and used but not expected.
func compareNames(scope string, expected, actual []string) []string {
	var details []string
	for _, name := range expected {
		if !slices.Contains(actual, name) {
			details = append(details, fmt.Sprintf("[%s] Should have used reducer: %s", scope, name))
		}
	}
	for _, name := range actual {
		if !slices.Contains(expected, name) {
			details = append(details, fmt.Sprintf("[%s] Should not have used reducer: %s", scope, name))
		}
	}
	return details
}

func names(reducers []analysis.Reducer) []string {
	out := make([]string, len(reducers))
	for i, r := range reducers {
		out[i] = r.Name
	}
	return out
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
