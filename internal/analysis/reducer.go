// Package analysis provides the reducer data model shared by the scanner, the usage walker
// and the output emitter.
package analysis

import (
	"cmp"
	"maps"
	"path/filepath"
	"slices"
)

// Reducer represents a reducer definition discovered in the source tree.
type Reducer struct {
	// Name is the literal value of the reducer-name marker. Names are unique within a run.
	Name string

	// DefinitionFile is the path of the file declaring the marker.
	DefinitionFile string

	// Dir is the directory containing DefinitionFile.
	Dir string

	// SagaFile is the path of the associated saga module, or empty when the reducer has none.
	SagaFile string
}

// NewReducer creates a Reducer declared in file.
func NewReducer(name, file, sagaFile string) Reducer {
	return Reducer{
		Name:           name,
		DefinitionFile: file,
		Dir:            filepath.Dir(file),
		SagaFile:       sagaFile,
	}
}

// HasSaga reports whether a saga module is associated with the reducer.
func (r Reducer) HasSaga() bool {
	return r.SagaFile != ""
}

// IsCoreFile reports whether path is a file whose import means the reducer is in use.
// With actionFilenames configured, the file must sit directly inside the reducer's directory
// and carry one of those names. Otherwise the file must declare an action marker whose value
// is the reducer's name; actionMarker is that value, or empty when the file has none.
func (r Reducer) IsCoreFile(path, actionMarker string, actionFilenames []string) bool {
	if len(actionFilenames) > 0 {
		if filepath.Dir(path) != r.Dir {
			return false
		}
		return slices.Contains(actionFilenames, filepath.Base(path))
	}
	return actionMarker != "" && actionMarker == r.Name
}

// Usage maps reducer names to the reducers reachable from a file.
type Usage map[string]Reducer

// Add records r, replacing any reducer with the same name.
func (u Usage) Add(r Reducer) {
	u[r.Name] = r
}

// Has reports whether a reducer with the given name is present.
func (u Usage) Has(name string) bool {
	_, ok := u[name]
	return ok
}

// Merge copies every reducer of other into u. Reducers of other win on name collision.
func (u Usage) Merge(other Usage) {
	maps.Copy(u, other)
}

// Clone returns a shallow copy of u. Reducer values are immutable, so the copy is independent.
func (u Usage) Clone() Usage {
	if u == nil {
		return Usage{}
	}
	return maps.Clone(u)
}

// Sorted returns the reducers ordered by name.
func (u Usage) Sorted() []Reducer {
	return SortReducers(slices.Collect(maps.Values(u)))
}

// SortReducers sorts reducers by name in place and returns the slice.
func SortReducers(reducers []Reducer) []Reducer {
	slices.SortFunc(reducers, func(a, b Reducer) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return reducers
}
