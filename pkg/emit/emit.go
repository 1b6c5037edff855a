// Package emit renders the generated reducer artifacts: the global registration module and
// the reducer map consumed by the runtime loader.
package emit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultImportFunction is the dynamic import call used in lazy-import functions.
const DefaultImportFunction = "System.import"

const header = "/* AUTOGENERATED FILE - DO NOT MODIFY */\n/* generated by reduxmapper */\n"

// Reducer is a reducer as emitted: its name and the module paths of its definition and
// saga, relative to the directory of the artifact being written.
type Reducer struct {
	Name       string
	ModulePath string

	// SagaPath is empty when the reducer has no saga.
	SagaPath string
}

// Container is one scanned container file and the reducers it uses.
type Container struct {
	// Key is the forward-slash path of the file relative to the base path, prefixed with "./".
	Key string

	// ModulePath is the import path of the file itself, relative to the reducer map.
	ModulePath string

	// Reducers must be sorted by name.
	Reducers []Reducer
}

// Options configures an Emitter.
type Options struct {
	// ImportFunction is the callee of lazy imports. Defaults to DefaultImportFunction.
	ImportFunction string
}

// Emitter renders artifacts. Output depends only on its input, so repeated runs over the
// same tree are byte-identical.
type Emitter struct {
	importFunction string
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	if opts.ImportFunction == "" {
		opts.ImportFunction = DefaultImportFunction
	}
	return &Emitter{importFunction: opts.ImportFunction}
}

// GlobalReducers writes the global registration module: one import per reducer followed by
// a default export object keyed by reducer name.
func (e *Emitter) GlobalReducers(w io.Writer, reducers []Reducer) error {
	var buf bytes.Buffer
	buf.WriteString(header)

	bindings := newBindingSet()
	idents := make([]string, len(reducers))
	for i, r := range reducers {
		idents[i] = bindings.add(r.Name)
		fmt.Fprintf(&buf, "import %s from %s;\n", idents[i], quote(r.ModulePath, '"'))
	}

	buf.WriteString("\nexport default {\n")
	for i, r := range reducers {
		if r.Name == idents[i] {
			fmt.Fprintf(&buf, "  %s,\n", r.Name)
			continue
		}
		fmt.Fprintf(&buf, "  %s: %s,\n", objectKey(r.Name), idents[i])
	}
	buf.WriteString("};\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// ReducerMap writes the combined data file holding the global reducer list and the
// per-container reducer lists.
func (e *Emitter) ReducerMap(w io.Writer, global []Reducer, containers []Container) error {
	p := &printer{}
	p.raw(header)
	p.raw("module.exports = {\n")
	p.indent++

	p.open(`"global": [`)
	e.reducerList(p, global)
	p.close("]", true)

	p.open(`"containerSpecific": {`)
	for i, c := range containers {
		p.open(quote(c.Key, '"') + ": {")
		p.line(`"importFunc": ` + e.lazyImport(c.ModulePath) + ",")
		p.open(`"reducers": [`)
		e.reducerList(p, c.Reducers)
		p.close("]", false)
		p.close("}", i < len(containers)-1)
	}
	p.close("}", false)

	p.indent--
	p.raw("};\n")

	_, err := w.Write(p.buf.Bytes())
	return err
}

func (e *Emitter) reducerList(p *printer, reducers []Reducer) {
	for i, r := range reducers {
		p.open("{")
		fields := []string{
			`"reducerName": ` + quote(r.Name, '"'),
			`"importFunc": ` + e.lazyImport(r.ModulePath),
		}
		if r.SagaPath != "" {
			fields = append(fields, `"sagaImportFunc": `+e.lazyImport(r.SagaPath))
		}
		p.fields(fields)
		p.close("}", i < len(reducers)-1)
	}
}

// lazyImport returns the literal function-expression text that loads path at runtime.
func (e *Emitter) lazyImport(path string) string {
	return "function() { return " + e.importFunction + "(" + quote(path, '\'') + "); }"
}

// WriteFile renders an artifact into path, creating parent directories. The file is left
// untouched when its content would not change, which keeps file watchers quiet. It reports
// whether the file was written.
func WriteFile(path string, render func(io.Writer) error) (bool, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return false, fmt.Errorf("render %s: %w", path, err)
	}
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, buf.Bytes()) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// ModulePath returns the import path of target as seen from a module in dir: relative,
// forward slashes, extension stripped and prefixed with "./" unless it climbs upward.
func ModulePath(dir, target string) (string, error) {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", target, err)
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}

// ContainerKey returns the reducer map key of file: its forward-slash path relative to
// basePath, prefixed with "./".
func ContainerKey(basePath, file string) (string, error) {
	rel, err := filepath.Rel(basePath, file)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", file, err)
	}
	return "./" + filepath.ToSlash(rel), nil
}

type printer struct {
	buf    bytes.Buffer
	indent int
}

func (p *printer) raw(s string) {
	p.buf.WriteString(s)
}

func (p *printer) line(s string) {
	p.buf.WriteString(strings.Repeat("  ", p.indent))
	p.buf.WriteString(s)
	p.buf.WriteByte('\n')
}

// open writes s, which ends with an opening bracket, and indents what follows.
func (p *printer) open(s string) {
	p.line(s)
	p.indent++
}

// close ends the innermost open object or array.
func (p *printer) close(bracket string, comma bool) {
	p.indent--
	if comma {
		bracket += ","
	}
	p.line(bracket)
}

func (p *printer) fields(fields []string) {
	for i, f := range fields {
		if i < len(fields)-1 {
			f += ","
		}
		p.line(f)
	}
}
