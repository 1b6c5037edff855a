package usage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/pkg/resolve"
	"github.com/715d/reduxmapper/pkg/source"
)

// noCut marks a subtree that reached no file on the current stack.
const noCut = math.MaxInt

// Options configures a Walker.
type Options struct {
	// BasePath is the application source root. Specifiers are also tried relative to it.
	BasePath string

	// ActionFilenames, when set, identify a reducer's core files by name instead of by
	// action marker.
	ActionFilenames []string
}

// Walker follows the import graph of a source file and collects the reducers whose core
// files it reaches.
type Walker struct {
	resolver        *resolve.Resolver
	reducers        []analysis.Reducer
	basePath        string
	actionFilenames []string

	// readFile is replaced in tests to inject read failures.
	readFile func(string) ([]byte, error)
}

// NewWalker creates a Walker over the given reducer registry.
func NewWalker(resolver *resolve.Resolver, reducers []analysis.Reducer, opts Options) *Walker {
	return &Walker{
		resolver:        resolver,
		reducers:        analysis.SortReducers(slices.Clone(reducers)),
		basePath:        opts.BasePath,
		actionFilenames: opts.ActionFilenames,
		readFile:        os.ReadFile,
	}
}

// visitResult is the outcome of scanning one file.
type visitResult struct {
	usage analysis.Usage

	// cut is the lowest stack index of an ancestor that the subtree tried to re-enter, or
	// noCut. A result cut above the scanned file is incomplete and must not be cached.
	cut int
}

// Scan returns every reducer reachable from file that has not been claimed as global in
// ctx. Each call starts with an empty stack and no restriction. A file that cannot be
// resolved or no longer exists yields an empty result; other read failures are returned.
func (w *Walker) Scan(ctx *Context, file string) (analysis.Usage, error) {
	res, err := w.visit(ctx, file, nil, Unrestricted())
	if err != nil {
		return nil, err
	}
	return res.usage.Clone(), nil
}

// key identifies a visit of resolved entered through edge. Restrictions only hold inside
// aggregator files, so every other file has a single key.
func (w *Walker) key(resolved string, edge Restriction) (cacheKey, Restriction) {
	restriction := Incoming(w.resolver.IsIndex(resolved), edge)
	return cacheKey{path: resolved, restriction: restriction.Signature()}, restriction
}

// visit scans file under edge. The stack holds the keys of the ancestors on the current
// path; a file is only a cycle when it is re-entered under the same restriction.
func (w *Walker) visit(ctx *Context, file string, stack []cacheKey, edge Restriction) (visitResult, error) {
	depth := len(stack)
	resolved, ok := w.resolver.Resolve(file)
	if !ok {
		ctx.Stats.Unresolved++
		slog.Debug("unresolved file", "file", file, "depth", depth)
		return visitResult{cut: noCut}, nil
	}

	key, restriction := w.key(resolved, edge)
	if cached, ok := ctx.lookup(key); ok {
		slog.Debug("cached file", "file", resolved, "restriction", key.restriction, "depth", depth)
		return visitResult{usage: cached, cut: noCut}, nil
	}

	data, err := w.readFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			empty := analysis.Usage{}
			ctx.store(key, empty)
			return visitResult{usage: empty, cut: noCut}, nil
		}
		return visitResult{}, fmt.Errorf("read %s: %w", resolved, err)
	}
	ctx.Stats.FilesScanned++
	slog.Debug("scanning file", "file", resolved, "restriction", key.restriction, "depth", depth)

	src := source.Tokenize(data)
	path := append(slices.Clone(stack), key)

	acc := analysis.Usage{}
	cut := noCut
	for _, ref := range src.References {
		if !Admits(restriction, ref) {
			ctx.Stats.SkippedEdges++
			slog.Debug("skipping reference", "file", resolved, "line", ref.Line, "specifiers", ref.Specifiers, "depth", depth)
			continue
		}
		childEdge := EdgeRestriction(restriction, ref)
		for _, spec := range ref.Specifiers {
			res, err := w.follow(ctx, resolved, spec, path, childEdge)
			if err != nil {
				return visitResult{}, err
			}
			acc.Merge(res.usage)
			cut = min(cut, res.cut)
		}
	}
	acc.Merge(w.localReducers(ctx, resolved, src))

	if cut < depth {
		return visitResult{usage: acc, cut: cut}, nil
	}
	ctx.store(key, acc)
	return visitResult{usage: acc, cut: noCut}, nil
}

// follow visits the targets of one specifier: relative to the importing file, then relative
// to the base path. Both candidates resolving to the same file are visited once.
func (w *Walker) follow(ctx *Context, from, spec string, path []cacheKey, edge Restriction) (visitResult, error) {
	candidates := []string{filepath.Join(filepath.Dir(from), spec)}
	if w.basePath != "" {
		candidates = append(candidates, filepath.Join(w.basePath, spec))
	}

	out := visitResult{usage: analysis.Usage{}, cut: noCut}
	var seen []string
	for _, candidate := range candidates {
		target, ok := w.resolver.Resolve(candidate)
		if !ok {
			continue
		}
		if slices.Contains(seen, target) {
			continue
		}
		seen = append(seen, target)

		key, _ := w.key(target, edge)
		if i := slices.Index(path, key); i >= 0 {
			ctx.Stats.CycleCuts++
			slog.Debug("import cycle", "file", from, "target", target, "restriction", key.restriction, "depth", len(path)-1)
			out.cut = min(out.cut, i)
			continue
		}
		res, err := w.visit(ctx, target, path, edge)
		if err != nil {
			return visitResult{}, err
		}
		out.usage.Merge(res.usage)
		out.cut = min(out.cut, res.cut)
	}
	if len(seen) == 0 {
		ctx.Stats.Unresolved++
		slog.Debug("unresolved specifier", "file", from, "specifier", spec)
	}
	return out, nil
}

// localReducers returns the non-global reducers for which file is a core file.
func (w *Walker) localReducers(ctx *Context, file string, src *source.File) analysis.Usage {
	actionMarker, _ := src.Marker(source.MarkerActionFile)
	local := analysis.Usage{}
	for _, r := range w.reducers {
		if ctx.IsGlobal(r.Name) || !r.IsCoreFile(file, actionMarker, w.actionFilenames) {
			continue
		}
		local.Add(r)
		ctx.Stats.UsagesFound++
		slog.Debug("found reducer usage", "reducer", r.Name, "file", file)
	}
	return local
}
