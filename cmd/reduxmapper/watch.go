package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/715d/reduxmapper/pkg/reduxmapper"
)

const debounceDelay = 250 * time.Millisecond

// changeFilter decides which file system events trigger a new run.
type changeFilter struct {
	outputs    []string
	outputDirs []string
	extensions []string
}

func newChangeFilter(m *reduxmapper.Mapper, extensions []string) *changeFilter {
	global, reducerMap := m.OutputPaths()
	return &changeFilter{
		outputs:    []string{filepath.Clean(global), filepath.Clean(reducerMap)},
		outputDirs: []string{filepath.Dir(global), filepath.Dir(reducerMap)},
		extensions: extensions,
	}
}

// relevant reports whether event may change the mapping. Generated files and
// permission changes never do.
func (f *changeFilter) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if slices.Contains(f.outputs, name) {
		return false
	}
	// The first run creates the output directories.
	if event.Op == fsnotify.Create && slices.Contains(f.outputDirs, name) {
		return false
	}
	// Removals and renames of directories carry no extension.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}
	ext := filepath.Ext(event.Name)
	if ext == "" {
		return event.Op&fsnotify.Create != 0
	}
	return len(f.extensions) == 0 || slices.Contains(f.extensions, ext)
}

// watch runs once, then again after every batch of relevant changes below the base
// directory until ctx is cancelled. Failed runs are reported to errOut and do not stop
// the loop.
func watch(ctx context.Context, opts reduxmapper.Options, errOut io.Writer, run func(context.Context) error) error {
	m, err := reduxmapper.New(opts)
	if err != nil {
		return err
	}
	filter := newChangeFilter(m, opts.Extensions)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, m.BaseDir()); err != nil {
		return err
	}

	runOnce := func() {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			printError(errOut, err)
		}
	}
	runOnce()
	slog.Info("watching for changes", "dir", m.BaseDir())

	timer := time.NewTimer(debounceDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						slog.Warn("watching new directory", "dir", event.Name, "err", err)
					}
				}
			}
			if !filter.relevant(event) {
				continue
			}
			slog.Debug("source changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounceDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "err", err)
		case <-timer.C:
			runOnce()
		}
	}
}

// addTree recursively adds root and all directories below it to the watcher.
func addTree(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "node_modules" || (path != root && d.Name()[0] == '.') {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	return nil
}
