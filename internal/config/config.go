// Package config assembles the mapper configuration from command-line flags and the
// optional redux-mapper.json side-car file in the project root.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/715d/reduxmapper/pkg/emit"
	"github.com/715d/reduxmapper/pkg/reduxmapper"
	"github.com/715d/reduxmapper/pkg/resolve"
)

// ProjectMarker is the file identifying the project root.
const ProjectMarker = "package.json"

// Config holds every option of the command.
type Config struct {
	MainAppPath              string
	BasePath                 string
	ContainerPaths           []string
	ReduxPaths               []string
	ActionFilenames          []string
	DisableCache             bool
	GlobalReducersOutputPath string
	IgnorePaths              string
	ReducerMapOutputPath     string
	SagaFilename             string
	VerboseLogging           bool
	ShowHelp                 bool
	ImportFunction           string
	Extensions               []string

	// SagaFilenameSet distinguishes an empty saga filename, which disables sagas, from
	// an unset one, which enables discovery by marker.
	SagaFilenameSet bool
}

// option describes one flag that can also be set from the side-car file.
type option struct {
	name      string
	shorthand string
	usage     string
	required  bool
}

var options = []option{
	{name: "mainAppPath", shorthand: "a", required: true,
		usage: "the path to the app's main JS/JSX file; reducers it uses are considered global"},
	{name: "basePath", shorthand: "b", required: true,
		usage: "the path to the root of the project's client-side script files"},
	{name: "containerPaths", shorthand: "c", required: true,
		usage: "comma-separated folders holding files which can be a route destination"},
	{name: "actionFilenames", shorthand: "f",
		usage: "comma-separated filenames which, imported from a reducer folder, mean the reducer is in use; without it action files need a PRM_ACTION_FILE_FOR_REDUCER marker"},
	{name: "disableCache", shorthand: "d",
		usage: "disable the traversal cache, which is useful for debugging"},
	{name: "globalReducersOutputPath", shorthand: "g", required: true,
		usage: "the output path for the globalReducers.js file"},
	{name: "ignorePaths", shorthand: "i",
		usage: "regular expression of paths to ignore"},
	{name: "reducerMapOutputPath", shorthand: "m", required: true,
		usage: "the output path for the reducerMap.js file"},
	{name: "reduxPaths", shorthand: "r", required: true,
		usage: "comma-separated root paths under which all reducers can be found"},
	{name: "sagaFilename", shorthand: "s",
		usage: "the filename holding each reducer's sagas (e.g. sagas.js); an empty value disables sagas"},
	{name: "verboseLogging", shorthand: "v",
		usage: "turn on verbose logging"},
	{name: "showHelp",
		usage: "show this help message"},
	{name: "importFunction",
		usage: "the dynamic import call used in generated lazy imports"},
	{name: "extensions",
		usage: "comma-separated extensions tried when resolving imports"},
}

func lookupOption(name string) (option, bool) {
	i := slices.IndexFunc(options, func(o option) bool { return o.name == name })
	if i < 0 {
		return option{}, false
	}
	return options[i], true
}

// RegisterFlags defines the command-line flags of c on flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	str := func(p *string, name, def string) {
		o, _ := lookupOption(name)
		flags.StringVarP(p, o.name, o.shorthand, def, o.usage)
	}
	list := func(p *[]string, name string, def []string) {
		o, _ := lookupOption(name)
		flags.StringSliceVarP(p, o.name, o.shorthand, def, o.usage)
	}
	boolean := func(p *bool, name string) {
		o, _ := lookupOption(name)
		flags.BoolVarP(p, o.name, o.shorthand, false, o.usage)
	}

	str(&c.MainAppPath, "mainAppPath", "")
	str(&c.BasePath, "basePath", "")
	list(&c.ContainerPaths, "containerPaths", nil)
	list(&c.ActionFilenames, "actionFilenames", nil)
	boolean(&c.DisableCache, "disableCache")
	str(&c.GlobalReducersOutputPath, "globalReducersOutputPath", "")
	str(&c.IgnorePaths, "ignorePaths", "")
	str(&c.ReducerMapOutputPath, "reducerMapOutputPath", "")
	list(&c.ReduxPaths, "reduxPaths", nil)
	str(&c.SagaFilename, "sagaFilename", "")
	boolean(&c.VerboseLogging, "verboseLogging")
	boolean(&c.ShowHelp, "showHelp")
	str(&c.ImportFunction, "importFunction", emit.DefaultImportFunction)
	list(&c.Extensions, "extensions", resolve.DefaultExtensions)
}

// FromFlags records which options were given on the command line. It must be called after
// flags are parsed and before Merge.
func (c *Config) FromFlags(flags *pflag.FlagSet) {
	if flags.Changed("sagaFilename") {
		c.SagaFilenameSet = true
	}
}

// FindProjectRoot returns the nearest directory, starting at dir and moving up, that
// holds ProjectMarker.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		info, err := os.Stat(filepath.Join(dir, ProjectMarker))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", reduxmapper.NewError(reduxmapper.CodeNoProjectRoot, "")
		}
		dir = parent
	}
}

// sideCar is the layout of the side-car file.
type sideCar struct {
	Config map[string]json.RawMessage `json:"config"`
}

// LoadFile reads the side-car file in root. A missing file yields no values.
func LoadFile(root string) (map[string]json.RawMessage, error) {
	path := filepath.Join(root, reduxmapper.ConfigFilename)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil && info.IsDir() {
		return nil, nil
	}
	return Parse(f)
}

// Parse decodes side-car content. Malformed content is reported as CodeInvalidConfig.
func Parse(r io.Reader) (map[string]json.RawMessage, error) {
	var sc sideCar
	if err := json.NewDecoder(r).Decode(&sc); err != nil {
		return nil, &reduxmapper.Error{Code: reduxmapper.CodeInvalidConfig, Err: err}
	}
	return sc.Config, nil
}

// Merge fills every option not set on the command line from values. isSet reports
// whether an option was given on the command line. Values of options whose name contains
// "Path" are converted to the OS path separator.
func (c *Config) Merge(values map[string]json.RawMessage, isSet func(name string) bool) error {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if _, ok := lookupOption(name); !ok {
			slog.Warn("unknown configuration key", "key", name, "file", reduxmapper.ConfigFilename)
			continue
		}
		if isSet(name) {
			continue
		}
		if err := c.set(name, values[name]); err != nil {
			return &reduxmapper.Error{Code: reduxmapper.CodeInvalidConfig, Detail: name, Err: err}
		}
	}
	return nil
}

func (c *Config) set(name string, raw json.RawMessage) error {
	fixup := func(s string) string {
		if strings.Contains(name, "Path") {
			return filepath.FromSlash(s)
		}
		return s
	}

	switch name {
	case "mainAppPath":
		return decodeString(raw, &c.MainAppPath, fixup)
	case "basePath":
		return decodeString(raw, &c.BasePath, fixup)
	case "globalReducersOutputPath":
		return decodeString(raw, &c.GlobalReducersOutputPath, fixup)
	case "reducerMapOutputPath":
		return decodeString(raw, &c.ReducerMapOutputPath, fixup)
	case "ignorePaths":
		// A pattern, not a path.
		return decodeString(raw, &c.IgnorePaths, nil)
	case "sagaFilename":
		c.SagaFilenameSet = true
		return decodeString(raw, &c.SagaFilename, nil)
	case "importFunction":
		return decodeString(raw, &c.ImportFunction, nil)
	case "containerPaths":
		return decodeList(raw, &c.ContainerPaths, fixup)
	case "reduxPaths":
		return decodeList(raw, &c.ReduxPaths, fixup)
	case "actionFilenames":
		return decodeList(raw, &c.ActionFilenames, nil)
	case "extensions":
		return decodeList(raw, &c.Extensions, nil)
	case "disableCache":
		return json.Unmarshal(raw, &c.DisableCache)
	case "verboseLogging":
		return json.Unmarshal(raw, &c.VerboseLogging)
	case "showHelp":
		return json.Unmarshal(raw, &c.ShowHelp)
	}
	return fmt.Errorf("unsupported option %q", name)
}

func decodeString(raw json.RawMessage, dst *string, fixup func(string) string) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if fixup != nil {
		s = fixup(s)
	}
	*dst = s
	return nil
}

// decodeList accepts either a comma-separated string or an array of strings.
func decodeList(raw json.RawMessage, dst *[]string, fixup func(string) string) error {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		items = strings.Split(s, ",")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		if fixup != nil {
			item = fixup(item)
		}
		out = append(out, item)
	}
	*dst = out
	return nil
}

// Validate reports the first required option without a value as CodeMissingParameter.
func (c *Config) Validate() error {
	for _, o := range options {
		if !o.required || c.has(o.name) {
			continue
		}
		return reduxmapper.NewError(reduxmapper.CodeMissingParameter, "--"+o.name,
			fmt.Sprintf("Specify a value for argument --%s either on the command line or in %s", o.name, reduxmapper.ConfigFilename))
	}
	return nil
}

func (c *Config) has(name string) bool {
	switch name {
	case "mainAppPath":
		return c.MainAppPath != ""
	case "basePath":
		return c.BasePath != ""
	case "containerPaths":
		return len(c.ContainerPaths) > 0
	case "reduxPaths":
		return len(c.ReduxPaths) > 0
	case "globalReducersOutputPath":
		return c.GlobalReducersOutputPath != ""
	case "reducerMapOutputPath":
		return c.ReducerMapOutputPath != ""
	}
	return true
}

// Options converts the configuration into mapper options for the project at root.
func (c *Config) Options(root string, out io.Writer) reduxmapper.Options {
	opts := reduxmapper.Options{
		Root:                     root,
		BasePath:                 c.BasePath,
		MainAppPath:              c.MainAppPath,
		ContainerPaths:           c.ContainerPaths,
		ReduxPaths:               c.ReduxPaths,
		GlobalReducersOutputPath: c.GlobalReducersOutputPath,
		ReducerMapOutputPath:     c.ReducerMapOutputPath,
		ActionFilenames:          c.ActionFilenames,
		IgnorePaths:              c.IgnorePaths,
		DisableCache:             c.DisableCache,
		ImportFunction:           c.ImportFunction,
		Extensions:               normalizeExtensions(c.Extensions),
		Output:                   out,
	}
	if c.SagaFilenameSet {
		saga := c.SagaFilename
		opts.SagaFilename = &saga
	}
	return opts
}

// normalizeExtensions makes every extension start with a dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext = strings.TrimSpace(ext); ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
