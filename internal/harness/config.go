// Package harness runs the mapper against fixture projects and compares the outcome with
// the expectations stored beside each project.
package harness

// TestCase represents a single fixture project.
type TestCase struct {
	// Dir is the directory of the project, relative to the testdata root.
	Dir string `yaml:"-"`

	// Description says what the case covers.
	Description string `yaml:"description"`

	// Configurations are the option sets to run the project with.
	Configurations []Configuration `yaml:"configurations"`
}

// Configuration is one set of mapper options with the outcome expected for it.
type Configuration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	BasePath        string   `yaml:"base_path"`
	MainAppPath     string   `yaml:"main_app_path"`
	ContainerPaths  []string `yaml:"container_paths"`
	ReduxPaths      []string `yaml:"redux_paths"`
	ActionFilenames []string `yaml:"action_filenames"`
	IgnorePaths     string   `yaml:"ignore_paths,omitempty"`
	DisableCache    bool     `yaml:"disable_cache,omitempty"`

	// SagaFilename is left unset to discover saga files by marker.
	SagaFilename *string `yaml:"saga_filename,omitempty"`

	// ExpectedGlobal lists the names of the reducers used by the main application.
	ExpectedGlobal []string `yaml:"expected_global"`

	// ExpectedContainers maps container keys to the names of the reducers they use.
	// Every container found must be listed.
	ExpectedContainers map[string][]string `yaml:"expected_containers"`

	// ExpectedSagas maps reducer names to saga files, relative to the project directory.
	// Reducers not listed must have no saga.
	ExpectedSagas map[string]string `yaml:"expected_sagas,omitempty"`

	// ExpectedError is the code of the error the run must fail with, or zero.
	ExpectedError int `yaml:"expected_error,omitempty"`
}
