// Package source provides a minimal tokenizer for JavaScript-like module sources.
// It reports only marker constant assignments and module references (import, re-export
// and require specifiers); it is not a parser and performs no semantic analysis.
package source

import (
	"fmt"
	"io"
	"os"
)

// ReferenceKind classifies how a module reference was written.
type ReferenceKind int

const (
	// ReferenceImport is a static `import ... from 'x'` statement.
	ReferenceImport ReferenceKind = iota

	// ReferenceSideEffect is a bare `import 'x'` statement.
	ReferenceSideEffect

	// ReferenceReExport is an `export ... from 'x'` statement.
	ReferenceReExport

	// ReferenceDynamicImport is an `import('x')` expression.
	ReferenceDynamicImport

	// ReferenceRequire is a `require('x')` or `require(['x', 'y'], ...)` call.
	ReferenceRequire
)

func (k ReferenceKind) String() string {
	switch k {
	case ReferenceImport:
		return "import"
	case ReferenceSideEffect:
		return "side-effect import"
	case ReferenceReExport:
		return "re-export"
	case ReferenceDynamicImport:
		return "dynamic import"
	case ReferenceRequire:
		return "require"
	}
	return fmt.Sprintf("ReferenceKind(%d)", int(k))
}

// Assignment is a marker constant assigned a string literal.
type Assignment struct {
	Marker MarkerType
	Value  string
	Line   int
}

// Reference is a module reference found in a source file.
type Reference struct {
	Kind ReferenceKind

	// Specifiers holds the referenced module specifiers. Only multi-target requires have more than one.
	Specifiers []string

	// Bindings are the names the statement makes visible in the referencing file: local
	// names for imports, exported names for re-exports.
	Bindings []string

	// Restriction lists the names requested from the target module. Nil means unrestricted:
	// default and namespace imports, side-effect imports, requires.
	Restriction []string

	// PassThrough marks `export * from 'x'`, which forwards whatever names the
	// referencing file was asked for.
	PassThrough bool

	Line int
}

// Unconditional reports whether the reference is always followed, regardless of any
// restriction inherited by the referencing file.
func (r Reference) Unconditional() bool {
	return r.Kind == ReferenceRequire || r.Kind == ReferenceDynamicImport || r.PassThrough
}

// File holds the tokens found in one source file.
type File struct {
	Assignments []Assignment
	References  []Reference
}

// Marker returns the value of the first assignment to the given marker.
func (f *File) Marker(m MarkerType) (string, bool) {
	for _, a := range f.Assignments {
		if a.Marker == m {
			return a.Value, true
		}
	}
	return "", false
}

// ScanFile reads and tokenizes a single file.
func ScanFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Tokenize(data), nil
}

// ScanReader tokenizes everything read from r.
func ScanReader(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return Tokenize(data), nil
}

// Tokenize extracts marker assignments and module references from src.
// Comments and the interior of string literals are skipped.
func Tokenize(src []byte) *File {
	lx := &lexer{src: src, line: 1}
	f := &File{}

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == '/' && lx.peek(1) == '/':
			lx.skipLineComment()
		case c == '/' && lx.peek(1) == '*':
			lx.skipBlockComment()
		case c == '\'' || c == '"' || c == '`':
			lx.skipString()
		case isIdentStart(c):
			start := lx.pos
			ident := lx.readIdent()
			if lx.precededByDot(start) {
				continue
			}
			lx.dispatch(ident, f)
		default:
			lx.pos++
		}
	}
	return f
}

// dispatch attempts the sub-scan matching ident. A failed attempt leaves the lexer
// positioned right after ident.
func (lx *lexer) dispatch(ident string, f *File) {
	line := lx.line
	switch ident {
	case "import":
		if ref, ok := lx.try(lx.scanImport); ok {
			ref.Line = line
			f.References = append(f.References, ref)
		}
	case "export":
		if ref, ok := lx.try(lx.scanReExport); ok {
			ref.Line = line
			f.References = append(f.References, ref)
		}
	case "require":
		if ref, ok := lx.try(lx.scanRequire); ok {
			ref.Line = line
			f.References = append(f.References, ref)
		}
	default:
		marker := LookupMarker(ident)
		if marker == MarkerNone {
			return
		}
		saved := *lx
		if value, ok := lx.scanAssignment(); ok {
			f.Assignments = append(f.Assignments, Assignment{Marker: marker, Value: value, Line: line})
			return
		}
		*lx = saved
	}
}

// try runs scan and rewinds the lexer if it fails.
func (lx *lexer) try(scan func() (Reference, bool)) (Reference, bool) {
	saved := *lx
	ref, ok := scan()
	if !ok {
		*lx = saved
	}
	return ref, ok
}

// scanImport handles everything after the `import` keyword.
func (lx *lexer) scanImport() (Reference, bool) {
	lx.skipSpace()
	switch c := lx.peek(0); {
	case c == '(':
		lx.pos++
		lx.skipSpace()
		spec, ok := lx.readString()
		if !ok {
			return Reference{}, false
		}
		lx.skipSpace()
		if c := lx.peek(0); c != ')' && c != ',' {
			return Reference{}, false
		}
		return Reference{Kind: ReferenceDynamicImport, Specifiers: []string{spec}}, true
	case c == '\'' || c == '"':
		spec, ok := lx.readString()
		if !ok {
			return Reference{}, false
		}
		return Reference{Kind: ReferenceSideEffect, Specifiers: []string{spec}}, true
	}

	var (
		bindings   []string
		named      []string
		hasBraces  bool
		hasDefault bool
		hasAll     bool
	)
	lx.skipTypeModifier()
	for {
		lx.skipSpace()
		switch c := lx.peek(0); {
		case c == '{':
			imported, locals, ok := lx.readNamedList()
			if !ok {
				return Reference{}, false
			}
			hasBraces = true
			named = append(named, imported...)
			bindings = append(bindings, locals...)
		case c == '*':
			lx.pos++
			lx.skipSpace()
			if lx.readIdent() != "as" {
				return Reference{}, false
			}
			lx.skipSpace()
			ns := lx.readIdent()
			if ns == "" {
				return Reference{}, false
			}
			hasAll = true
			bindings = append(bindings, ns)
		case isIdentStart(c):
			saved := *lx
			ident := lx.readIdent()
			if ident == "from" {
				*lx = saved
				break
			}
			hasDefault = true
			bindings = append(bindings, ident)
		default:
			return Reference{}, false
		}

		lx.skipSpace()
		if lx.peek(0) != ',' {
			break
		}
		lx.pos++
	}

	spec, ok := lx.readFrom()
	if !ok {
		return Reference{}, false
	}
	ref := Reference{Kind: ReferenceImport, Specifiers: []string{spec}, Bindings: bindings}
	if hasBraces && !hasDefault && !hasAll {
		ref.Restriction = nonNil(named)
	}
	return ref, true
}

// scanReExport handles everything after the `export` keyword. Only `export ... from`
// forms produce references.
func (lx *lexer) scanReExport() (Reference, bool) {
	lx.skipTypeModifier()
	lx.skipSpace()
	switch lx.peek(0) {
	case '*':
		lx.pos++
		lx.skipSpace()
		ref := Reference{Kind: ReferenceReExport}
		if isIdentStart(lx.peek(0)) {
			saved := *lx
			if lx.readIdent() == "as" {
				lx.skipSpace()
				ns := lx.readIdent()
				if ns == "" {
					return Reference{}, false
				}
				ref.Bindings = []string{ns}
			} else {
				*lx = saved
			}
		}
		if ref.Bindings == nil {
			ref.PassThrough = true
		}
		spec, ok := lx.readFrom()
		if !ok {
			return Reference{}, false
		}
		ref.Specifiers = []string{spec}
		return ref, true
	case '{':
		imported, exported, ok := lx.readNamedList()
		if !ok {
			return Reference{}, false
		}
		spec, ok := lx.readFrom()
		if !ok {
			return Reference{}, false
		}
		return Reference{
			Kind:        ReferenceReExport,
			Specifiers:  []string{spec},
			Bindings:    exported,
			Restriction: nonNil(imported),
		}, true
	}
	return Reference{}, false
}

// scanRequire handles everything after the `require` identifier.
func (lx *lexer) scanRequire() (Reference, bool) {
	lx.skipSpace()
	if lx.peek(0) != '(' {
		return Reference{}, false
	}
	lx.pos++
	lx.skipSpace()

	if lx.peek(0) != '[' {
		spec, ok := lx.readString()
		if !ok {
			return Reference{}, false
		}
		return Reference{Kind: ReferenceRequire, Specifiers: []string{spec}}, true
	}

	lx.pos++
	var specs []string
	for lx.pos < len(lx.src) {
		lx.skipSpace()
		switch c := lx.peek(0); {
		case c == ']':
			lx.pos++
			if len(specs) == 0 {
				return Reference{}, false
			}
			return Reference{Kind: ReferenceRequire, Specifiers: specs}, true
		case c == ',':
			lx.pos++
		case c == '\'' || c == '"' || c == '`':
			spec, ok := lx.readString()
			if !ok {
				lx.skipString()
				continue
			}
			specs = append(specs, spec)
		default:
			// Non-literal element: skip to the next separator.
			for lx.pos < len(lx.src) && lx.peek(0) != ',' && lx.peek(0) != ']' {
				if lx.peek(0) == '\n' {
					lx.line++
				}
				lx.pos++
			}
		}
	}
	return Reference{}, false
}

// scanAssignment reads `= 'value'` following a marker identifier.
func (lx *lexer) scanAssignment() (string, bool) {
	lx.skipSpace()
	if lx.peek(0) != '=' || lx.peek(1) == '=' {
		return "", false
	}
	lx.pos++
	lx.skipSpace()
	return lx.readString()
}

// readFrom reads `from 'specifier'`.
func (lx *lexer) readFrom() (string, bool) {
	lx.skipSpace()
	if lx.readIdent() != "from" {
		return "", false
	}
	lx.skipSpace()
	return lx.readString()
}

// readNamedList reads a `{ a, b as c, default as d }` clause. It returns the names on the
// left of each `as` and the names on the right (equal to the left when there is no alias).
func (lx *lexer) readNamedList() (left, right []string, ok bool) {
	if lx.peek(0) != '{' {
		return nil, nil, false
	}
	lx.pos++
	for lx.pos < len(lx.src) {
		lx.skipSpace()
		switch lx.peek(0) {
		case '}':
			lx.pos++
			return left, right, true
		case ',':
			lx.pos++
			continue
		}

		name, ok := lx.readName()
		if !ok {
			return nil, nil, false
		}
		lx.skipSpace()
		if name == "type" && (isIdentStart(lx.peek(0)) || isQuote(lx.peek(0))) {
			// Inline type modifier: `{ type Foo }`, unless the binding itself is named "type".
			saved := *lx
			next, ok := lx.readName()
			if ok && next != "as" {
				name = next
				lx.skipSpace()
			} else {
				*lx = saved
			}
		}

		alias := name
		if isIdentStart(lx.peek(0)) {
			saved := *lx
			if lx.readIdent() == "as" {
				lx.skipSpace()
				if alias, ok = lx.readName(); !ok {
					return nil, nil, false
				}
			} else {
				*lx = saved
			}
		}
		left = append(left, name)
		right = append(right, alias)
	}
	return nil, nil, false
}

// readName reads an identifier or a string-literal module export name.
func (lx *lexer) readName() (string, bool) {
	if isQuote(lx.peek(0)) {
		return lx.readString()
	}
	name := lx.readIdent()
	return name, name != ""
}

// skipTypeModifier consumes a TypeScript `type` keyword preceding an import or export clause.
func (lx *lexer) skipTypeModifier() {
	saved := *lx
	lx.skipSpace()
	if lx.readIdent() != "type" {
		*lx = saved
		return
	}
	lx.skipSpace()
	switch c := lx.peek(0); {
	case c == '{' || c == '*':
		return
	case isIdentStart(c):
		// `import type Foo from` is a type import; `import type from` binds "type".
		probe := *lx
		if lx.readIdent() != "from" {
			*lx = probe
			return
		}
	}
	*lx = saved
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
