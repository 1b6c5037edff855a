package usage

import (
	"slices"
	"strings"

	"github.com/715d/reduxmapper/pkg/source"
)

// unrestrictedSignature is the cache signature of an unrestricted edge.
const unrestrictedSignature = "*"

// Restriction is the set of names an import edge requests from its target.
// The zero value is unrestricted.
type Restriction struct {
	// names is nil when unrestricted; an empty non-nil map requests nothing
	names map[string]struct{}
}

// Unrestricted returns a restriction that admits every name.
func Unrestricted() Restriction {
	return Restriction{}
}

// Restrict returns a restriction limited to names. A nil slice is unrestricted; an empty
// non-nil slice admits nothing.
func Restrict(names []string) Restriction {
	if names == nil {
		return Restriction{}
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return Restriction{names: set}
}

// IsRestricted reports whether the restriction limits names at all.
func (r Restriction) IsRestricted() bool {
	return r.names != nil
}

// Allows reports whether name is admitted.
func (r Restriction) Allows(name string) bool {
	if r.names == nil {
		return true
	}
	_, ok := r.names[name]
	return ok
}

// Names returns the admitted names in sorted order, or nil when unrestricted.
func (r Restriction) Names() []string {
	if r.names == nil {
		return nil
	}
	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Signature returns a stable string identifying the restriction, used in cache keys.
func (r Restriction) Signature() string {
	if r.names == nil {
		return unrestrictedSignature
	}
	return "{" + strings.Join(r.Names(), ",") + "}"
}

// Incoming returns the restriction that applies inside a file reached through edge.
// Only aggregator files honor restrictions; every other file is scanned in full.
func Incoming(isAggregator bool, edge Restriction) Restriction {
	if !isAggregator {
		return Unrestricted()
	}
	return edge
}

// Admits decides whether ref, found inside a file scanned under inherited, is traversed.
// A restricted file follows a static import or re-export only when one of its bindings
// was requested; requires, dynamic imports and star re-exports are always followed.
func Admits(inherited Restriction, ref source.Reference) bool {
	if !inherited.IsRestricted() || ref.Unconditional() {
		return true
	}
	for _, b := range ref.Bindings {
		if inherited.Allows(b) {
			return true
		}
	}
	return false
}

// EdgeRestriction returns the restriction carried into the target of ref. A star
// re-export forwards the inherited restriction unchanged.
func EdgeRestriction(inherited Restriction, ref source.Reference) Restriction {
	if ref.PassThrough {
		return inherited
	}
	return Restrict(ref.Restriction)
}
