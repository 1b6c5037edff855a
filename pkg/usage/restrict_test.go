package usage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/reduxmapper/pkg/source"
)

func TestRestriction_Signature(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{name: "unrestricted", names: nil, want: "*"},
		{name: "empty", names: []string{}, want: "{}"},
		{name: "sorted", names: []string{"b", "a"}, want: "{a,b}"},
		{name: "deduplicated", names: []string{"a", "a"}, want: "{a}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Restrict(tt.names).Signature())
		})
	}
}

func TestRestriction_Allows(t *testing.T) {
	require.True(t, Unrestricted().Allows("anything"))
	require.False(t, Unrestricted().IsRestricted())
	require.Nil(t, Unrestricted().Names())

	r := Restrict([]string{"a"})
	require.True(t, r.IsRestricted())
	require.True(t, r.Allows("a"))
	require.False(t, r.Allows("b"))

	none := Restrict([]string{})
	require.True(t, none.IsRestricted())
	require.False(t, none.Allows("a"))
	require.Empty(t, none.Names())
}

func TestIncoming(t *testing.T) {
	edge := Restrict([]string{"a"})
	require.Equal(t, "*", Incoming(false, edge).Signature())
	require.Equal(t, "{a}", Incoming(true, edge).Signature())
	require.Equal(t, "*", Incoming(true, Unrestricted()).Signature())
}

func TestAdmits(t *testing.T) {
	restricted := Restrict([]string{"a", "b"})

	tests := []struct {
		name      string
		inherited Restriction
		ref       source.Reference
		want      bool
	}{
		{
			name:      "unrestricted file admits everything",
			inherited: Unrestricted(),
			ref:       source.Reference{Kind: source.ReferenceImport, Bindings: []string{"z"}},
			want:      true,
		},
		{
			name:      "binding requested",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceImport, Bindings: []string{"z", "b"}},
			want:      true,
		},
		{
			name:      "no binding requested",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceImport, Bindings: []string{"z"}},
			want:      false,
		},
		{
			name:      "side effect import under restriction",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceSideEffect},
			want:      false,
		},
		{
			name:      "re-export by exported name",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceReExport, Bindings: []string{"a"}, Restriction: []string{"default"}},
			want:      true,
		},
		{
			name:      "require is unconditional",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceRequire},
			want:      true,
		},
		{
			name:      "dynamic import is unconditional",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceDynamicImport},
			want:      true,
		},
		{
			name:      "star re-export is unconditional",
			inherited: restricted,
			ref:       source.Reference{Kind: source.ReferenceReExport, PassThrough: true},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Admits(tt.inherited, tt.ref))
		})
	}
}

func TestEdgeRestriction(t *testing.T) {
	inherited := Restrict([]string{"x"})

	named := source.Reference{Kind: source.ReferenceImport, Restriction: []string{"a"}}
	require.Equal(t, "{a}", EdgeRestriction(inherited, named).Signature())

	whole := source.Reference{Kind: source.ReferenceImport}
	require.Equal(t, "*", EdgeRestriction(inherited, whole).Signature())

	star := source.Reference{Kind: source.ReferenceReExport, PassThrough: true}
	require.Equal(t, "{x}", EdgeRestriction(inherited, star).Signature())
	require.Equal(t, "*", EdgeRestriction(Unrestricted(), star).Signature())
}
