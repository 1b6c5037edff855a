// Package resolve turns raw module specifiers into concrete file paths.
package resolve

import (
	"os"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v4"
)

// Defaults for the candidate layouts tried after the literal path.
const (
	DefaultIndexFilename = "index.js"
)

// DefaultExtensions are the source extensions appended to extensionless specifiers, in order.
var DefaultExtensions = []string{".jsx", ".js"}

type entryKind uint8

const (
	kindMissing entryKind = iota
	kindFile
	kindDir
)

// Options configures a Resolver.
type Options struct {
	// Extensions are appended to the specifier in order. Defaults to DefaultExtensions.
	Extensions []string

	// IndexFilename is tried inside a directory specifier. Defaults to DefaultIndexFilename.
	IndexFilename string
}

// Resolver resolves specifiers against the file system. Stat results are memoized for the
// lifetime of the resolver, which assumes the tree does not change during a run. It is
// safe for concurrent use.
type Resolver struct {
	extensions []string
	index      string
	stats      *xsync.Map[string, entryKind]
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.IndexFilename == "" {
		opts.IndexFilename = DefaultIndexFilename
	}
	return &Resolver{
		extensions: opts.Extensions,
		index:      opts.IndexFilename,
		stats:      xsync.NewMap[string, entryKind](),
	}
}

// IndexFilename returns the aggregator filename tried inside directories.
func (r *Resolver) IndexFilename() string {
	return r.index
}

// Resolve returns the first existing candidate for specifier: the literal path, the path
// with each extension appended, then the index file inside the path when it is a
// directory. Returned paths are cleaned. The second result is false when nothing exists; that is not an error.
func (r *Resolver) Resolve(specifier string) (string, bool) {
	if specifier == "" {
		return "", false
	}
	specifier = filepath.Clean(specifier)
	if r.IsFile(specifier) {
		return specifier, true
	}
	for _, ext := range r.extensions {
		if candidate := specifier + ext; r.IsFile(candidate) {
			return candidate, true
		}
	}
	if r.IsDir(specifier) {
		if candidate := filepath.Join(specifier, r.index); r.IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// IsFile reports whether path exists and is not a directory.
func (r *Resolver) IsFile(path string) bool {
	return r.stat(path) == kindFile
}

// IsDir reports whether path exists and is a directory.
func (r *Resolver) IsDir(path string) bool {
	return r.stat(path) == kindDir
}

// IsIndex reports whether path names an aggregator file.
func (r *Resolver) IsIndex(path string) bool {
	return filepath.Base(path) == r.index
}

func (r *Resolver) stat(path string) entryKind {
	path = filepath.Clean(path)
	kind, _ := r.stats.LoadOrCompute(path, func() (entryKind, bool) {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			// Any stat failure counts as missing, the same as an existence check.
			return kindMissing, false
		case info.IsDir():
			return kindDir, false
		default:
			return kindFile, false
		}
	})
	return kind
}
