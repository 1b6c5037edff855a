package reduxmapper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/pkg/emit"
	"github.com/715d/reduxmapper/pkg/ignore"
	"github.com/715d/reduxmapper/pkg/resolve"
	"github.com/715d/reduxmapper/pkg/usage"
)

var tracer = otel.Tracer("github.com/715d/reduxmapper")

// Options configures a Mapper. Paths other than Root and BasePath are relative to the
// base path; BasePath is relative to Root.
type Options struct {
	// Root is the project root. Defaults to the working directory.
	Root string

	BasePath                 string
	MainAppPath              string
	ContainerPaths           []string
	ReduxPaths               []string
	GlobalReducersOutputPath string
	ReducerMapOutputPath     string

	// ActionFilenames, when set, replace action markers for identifying core files.
	ActionFilenames []string

	// IgnorePaths is a regular expression matched against project-relative paths.
	IgnorePaths string

	// SagaFilename is the fixed saga module name. Nil discovers saga files by marker; an
	// empty string disables sagas.
	SagaFilename *string

	DisableCache bool

	// ImportFunction is the callee of generated lazy imports.
	ImportFunction string

	// Extensions and IndexFilename configure module resolution.
	Extensions    []string
	IndexFilename string

	// Output receives progress lines. Nil discards them.
	Output io.Writer
}

// Mapper computes reducer usage for one project. A Mapper may run repeatedly; each run
// starts from a fresh traversal context.
type Mapper struct {
	opts     Options
	root     string
	base     string
	resolver *resolve.Resolver
	ignore   *ignore.Checker
	emitter  *emit.Emitter
	out      io.Writer

	// readFile is replaced in tests.
	readFile func(string) ([]byte, error)
}

// New creates a Mapper. An invalid ignore pattern is reported as CodeBadRegexp.
func New(opts Options) (*Mapper, error) {
	checker, err := ignore.NewChecker(opts.IgnorePaths)
	if err != nil {
		return nil, &Error{Code: CodeBadRegexp, Detail: opts.IgnorePaths, Err: err}
	}
	root := opts.Root
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	return &Mapper{
		opts: opts,
		root: root,
		base: filepath.Join(root, opts.BasePath),
		resolver: resolve.New(resolve.Options{
			Extensions:    opts.Extensions,
			IndexFilename: opts.IndexFilename,
		}),
		ignore:   checker,
		emitter:  emit.New(emit.Options{ImportFunction: opts.ImportFunction}),
		out:      out,
		readFile: os.ReadFile,
	}, nil
}

// Execute runs the mapping, writes both artifacts and prints a summary line.
func (m *Mapper) Execute(ctx context.Context) (*Result, error) {
	res, err := m.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.Write(ctx, res); err != nil {
		return nil, err
	}
	m.progress("")
	m.progress("SUCCESS!  Found %d reducers used in %d files.  Elapsed time: %dms",
		res.Stats.Traversal.UsagesFound, res.Stats.Traversal.FilesScanned, res.Stats.Elapsed.Milliseconds())
	return res, nil
}

// Run discovers reducers, computes the global set from the main application file and
// then the usage of every file under the container roots.
func (m *Mapper) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Mapper.Run")
	defer span.End()

	reducers, err := m.FindReducers(ctx, m.basePaths(m.opts.ReduxPaths))
	if err != nil {
		return nil, err
	}
	if len(reducers) == 0 {
		return nil, NewError(CodeNoReducers, "")
	}

	mainApp := m.basePath(m.opts.MainAppPath)
	if !m.resolver.IsFile(mainApp) {
		return nil, NewError(CodeNoMainApp, mainApp)
	}

	walker := usage.NewWalker(m.resolver, reducers, usage.Options{
		BasePath:        m.base,
		ActionFilenames: m.opts.ActionFilenames,
	})
	tctx := usage.NewContext(m.opts.DisableCache)

	global, err := m.scanGlobal(ctx, walker, tctx, mainApp)
	if err != nil {
		return nil, err
	}
	// Cached results may hold reducers that are now global.
	tctx.Claim(global)

	containers, err := m.scanContainers(ctx, walker, tctx)
	if err != nil {
		return nil, err
	}
	if tctx.Stats.UsagesFound == 0 {
		return nil, NewError(CodeNoUsages, "")
	}

	res := &Result{
		Reducers:   reducers,
		Global:     global.Sorted(),
		Containers: containers,
		Stats: Stats{
			Reducers:       len(reducers),
			ContainerFiles: len(containers),
			Traversal:      tctx.Stats,
			Elapsed:        time.Since(start),
		},
	}
	span.SetAttributes(
		attribute.Int("reducers", res.Stats.Reducers),
		attribute.Int("global", len(res.Global)),
		attribute.Int("container_files", res.Stats.ContainerFiles),
		attribute.Int("files_scanned", tctx.Stats.FilesScanned),
	)
	slog.Info("mapping completed",
		"reducers", res.Stats.Reducers,
		"global", len(res.Global),
		"container_files", res.Stats.ContainerFiles,
		"files_scanned", tctx.Stats.FilesScanned,
		"cache_hits", tctx.Stats.CacheHits,
		"dur", res.Stats.Elapsed)
	return res, nil
}

func (m *Mapper) scanGlobal(ctx context.Context, walker *usage.Walker, tctx *usage.Context, mainApp string) (analysis.Usage, error) {
	_, span := tracer.Start(ctx, "Mapper.scanGlobal",
		trace.WithAttributes(attribute.String("file", mainApp)),
	)
	defer span.End()

	m.progress("Finding global reducers in %s ...", mainApp)
	global, err := walker.Scan(tctx, mainApp)
	if err != nil {
		return nil, fmt.Errorf("scan main application file: %w", err)
	}
	span.SetAttributes(attribute.Int("reducers", len(global)))
	slog.Debug("global reducers", "names", slices.Sorted(maps.Keys(global)))
	return global, nil
}

// scanContainers scans every file under the container roots. A file found under more
// than one root keeps the result of the last root.
func (m *Mapper) scanContainers(ctx context.Context, walker *usage.Walker, tctx *usage.Context) ([]ContainerUsage, error) {
	ctx, span := tracer.Start(ctx, "Mapper.scanContainers")
	defer span.End()

	byKey := make(map[string]ContainerUsage)
	for _, dir := range m.basePaths(m.opts.ContainerPaths) {
		m.progress("Scanning reducer usage in %s ...", dir)
		files, err := m.walkFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if rule := m.ignore.MatchContainerFile(m.projectPath(file)); rule != ignore.RuleNone {
				slog.Debug("skipping container file", "file", file, "rule", rule)
				continue
			}
			used, err := walker.Scan(tctx, file)
			if err != nil {
				return nil, fmt.Errorf("scan container file: %w", err)
			}
			key, err := emit.ContainerKey(m.base, file)
			if err != nil {
				return nil, err
			}
			byKey[key] = ContainerUsage{Key: key, File: file, Reducers: used.Sorted()}
		}
	}

	containers := make([]ContainerUsage, 0, len(byKey))
	for _, key := range slices.Sorted(maps.Keys(byKey)) {
		containers = append(containers, byKey[key])
	}
	span.SetAttributes(attribute.Int("container_files", len(containers)))
	return containers, nil
}

// Write emits the global reducers module and the reducer map for res.
func (m *Mapper) Write(ctx context.Context, res *Result) error {
	_, span := tracer.Start(ctx, "Mapper.Write")
	defer span.End()

	globalPath, mapPath := m.OutputPaths()

	imports, err := m.emitReducers(filepath.Dir(globalPath), res.Global)
	if err != nil {
		return err
	}
	written, err := emit.WriteFile(globalPath, func(w io.Writer) error {
		return m.emitter.GlobalReducers(w, imports)
	})
	if err != nil {
		return err
	}
	slog.Debug("global reducers module", "path", globalPath, "written", written)

	mapDir := filepath.Dir(mapPath)
	global, err := m.emitReducers(mapDir, res.Global)
	if err != nil {
		return err
	}
	containers := make([]emit.Container, 0, len(res.Containers))
	for _, c := range res.Containers {
		modulePath, err := emit.ModulePath(mapDir, c.File)
		if err != nil {
			return err
		}
		reducers, err := m.emitReducers(mapDir, c.Reducers)
		if err != nil {
			return err
		}
		containers = append(containers, emit.Container{Key: c.Key, ModulePath: modulePath, Reducers: reducers})
	}
	written, err = emit.WriteFile(mapPath, func(w io.Writer) error {
		return m.emitter.ReducerMap(w, global, containers)
	})
	if err != nil {
		return err
	}
	slog.Debug("reducer map", "path", mapPath, "written", written)
	return nil
}

// emitReducers converts reducers to their emitted form with module paths relative to dir.
func (m *Mapper) emitReducers(dir string, reducers []analysis.Reducer) ([]emit.Reducer, error) {
	out := make([]emit.Reducer, 0, len(reducers))
	for _, r := range reducers {
		modulePath, err := emit.ModulePath(dir, r.DefinitionFile)
		if err != nil {
			return nil, err
		}
		e := emit.Reducer{Name: r.Name, ModulePath: modulePath}
		if r.HasSaga() {
			if e.SagaPath, err = emit.ModulePath(dir, r.SagaFile); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// OutputPaths returns the absolute paths of the global reducers module and the reducer map.
func (m *Mapper) OutputPaths() (globalReducers, reducerMap string) {
	return m.basePath(m.opts.GlobalReducersOutputPath), m.basePath(m.opts.ReducerMapOutputPath)
}

// BaseDir returns the application source root.
func (m *Mapper) BaseDir() string {
	return m.base
}

func (m *Mapper) basePath(p string) string {
	return filepath.Join(m.base, strings.TrimSpace(p))
}

func (m *Mapper) basePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, m.basePath(p))
		}
	}
	return out
}

func (m *Mapper) progress(format string, args ...any) {
	fmt.Fprintf(m.out, format+"\n", args...)
}
