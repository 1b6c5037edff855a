package reduxmapper

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/pkg/source"
)

// sourceTree is a walked root with the tokens of each of its files.
type sourceTree struct {
	root   string
	files  []string
	tokens []*source.File
}

// FindReducers scans the given roots for reducer definitions and returns them sorted by
// name. Roots are walked in order and files in lexical order; the first definition of a
// name wins and later ones are logged and dropped.
func (m *Mapper) FindReducers(ctx context.Context, roots []string) ([]analysis.Reducer, error) {
	ctx, span := tracer.Start(ctx, "Mapper.FindReducers",
		trace.WithAttributes(attribute.StringSlice("roots", roots)),
	)
	defer span.End()

	trees := make([]sourceTree, 0, len(roots))
	for _, root := range roots {
		m.progress("Finding reducers in %s ...", root)
		tree, err := m.loadTree(ctx, root)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}

	var sagaNames map[string]string
	if m.opts.SagaFilename == nil {
		sagaNames = findSagaFiles(trees)
	}

	seen := make(map[string]analysis.Reducer)
	var reducers []analysis.Reducer
	for _, tree := range trees {
		for i, f := range tree.tokens {
			name, ok := f.Marker(source.MarkerReducerName)
			if !ok {
				continue
			}
			file := tree.files[i]
			if prev, dup := seen[name]; dup {
				slog.Warn("duplicate reducer name", "name", name, "file", file, "kept", prev.DefinitionFile)
				continue
			}
			r := analysis.NewReducer(name, file, m.sagaFile(file, name, sagaNames))
			seen[name] = r
			reducers = append(reducers, r)
			slog.Debug("found reducer", "name", name, "file", file, "saga", r.SagaFile)
		}
	}

	span.SetAttributes(attribute.Int("reducers", len(reducers)))
	return analysis.SortReducers(reducers), nil
}

// findSagaFiles maps reducer names to the base name of the file declaring a saga marker
// for them. The first declaration wins.
func findSagaFiles(trees []sourceTree) map[string]string {
	names := make(map[string]string)
	for _, tree := range trees {
		for i, f := range tree.tokens {
			name, ok := f.Marker(source.MarkerSagaFile)
			if !ok {
				continue
			}
			if _, dup := names[name]; !dup {
				names[name] = filepath.Base(tree.files[i])
			}
		}
	}
	return names
}

// sagaFile returns the saga module of the reducer defined in file, or empty when the
// configured or discovered saga file does not exist beside it.
func (m *Mapper) sagaFile(file, name string, sagaNames map[string]string) string {
	var filename string
	if m.opts.SagaFilename != nil {
		filename = *m.opts.SagaFilename
	} else {
		filename = sagaNames[name]
	}
	if filename == "" {
		return ""
	}
	path := filepath.Join(filepath.Dir(file), filename)
	if !m.resolver.IsFile(path) {
		return ""
	}
	return path
}

// loadTree walks root and tokenizes every file in it.
func (m *Mapper) loadTree(ctx context.Context, root string) (sourceTree, error) {
	files, err := m.walkFiles(root)
	if err != nil {
		return sourceTree{}, err
	}

	// Each goroutine writes only its own index, and results are read after Wait.
	tokens := make([]*source.File, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for idx, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := m.readFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			tokens[idx] = source.Tokenize(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sourceTree{}, err
	}
	return sourceTree{root: root, files: files, tokens: tokens}, nil
}

// walkFiles returns the regular files below root in lexical order, including symbolic
// links to regular files. Symbolic links to directories are not followed. Entries matching
// the ignore pattern are skipped; a matching directory is not descended into.
func (m *Mapper) walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && m.ignore.Match(m.projectPath(path)) {
			slog.Debug("ignoring path", "path", path, "pattern", m.ignore.Pattern())
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() || isLinkToFile(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func isLinkToFile(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// projectPath returns path relative to the project root with forward slashes, the form
// the ignore pattern is matched against.
func (m *Mapper) projectPath(path string) string {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
