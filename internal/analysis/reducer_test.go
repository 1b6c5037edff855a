package analysis

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReducer_NewReducer(t *testing.T) {
	file := filepath.Join("src", "redux", "store1", "index.js")
	r := NewReducer("store1", file, "")

	require.Equal(t, "store1", r.Name)
	require.Equal(t, file, r.DefinitionFile)
	require.Equal(t, filepath.Join("src", "redux", "store1"), r.Dir)
	require.False(t, r.HasSaga())

	r = NewReducer("store1", file, filepath.Join("src", "redux", "store1", "sagas.js"))
	require.True(t, r.HasSaga())
}

func TestReducer_IsCoreFile(t *testing.T) {
	r := NewReducer("store1", filepath.Join("redux", "store1", "index.js"), "")

	tests := []struct {
		name            string
		path            string
		actionMarker    string
		actionFilenames []string
		expected        bool
	}{
		{
			name:            "action file in reducer dir",
			path:            filepath.Join("redux", "store1", "actions.js"),
			actionFilenames: []string{"actions.js", "selectors.js"},
			expected:        true,
		},
		{
			name:            "second configured filename",
			path:            filepath.Join("redux", "store1", "selectors.js"),
			actionFilenames: []string{"actions.js", "selectors.js"},
			expected:        true,
		},
		{
			name:            "unlisted filename in reducer dir",
			path:            filepath.Join("redux", "store1", "constants.js"),
			actionFilenames: []string{"actions.js"},
			expected:        false,
		},
		{
			name:            "action file in nested dir",
			path:            filepath.Join("redux", "store1", "nested", "actions.js"),
			actionFilenames: []string{"actions.js"},
			expected:        false,
		},
		{
			name:            "action file in sibling reducer dir",
			path:            filepath.Join("redux", "store2", "actions.js"),
			actionFilenames: []string{"actions.js"},
			expected:        false,
		},
		{
			name:            "filename list ignores markers",
			path:            filepath.Join("components", "thing.js"),
			actionMarker:    "store1",
			actionFilenames: []string{"actions.js"},
			expected:        false,
		},
		{
			name:         "matching action marker",
			path:         filepath.Join("components", "thing.js"),
			actionMarker: "store1",
			expected:     true,
		},
		{
			name:         "other reducer's action marker",
			path:         filepath.Join("components", "thing.js"),
			actionMarker: "store2",
			expected:     false,
		},
		{
			name:     "no marker",
			path:     filepath.Join("components", "thing.js"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, r.IsCoreFile(tt.path, tt.actionMarker, tt.actionFilenames))
		})
	}
}

func TestUsage_MergeAndSorted(t *testing.T) {
	a := NewReducer("a", filepath.Join("a", "index.js"), "")
	b := NewReducer("b", filepath.Join("b", "index.js"), "")
	c := NewReducer("c", filepath.Join("c", "index.js"), "")

	u := Usage{}
	u.Add(c)
	u.Add(a)

	other := Usage{}
	other.Add(b)
	other.Add(NewReducer("a", filepath.Join("a2", "index.js"), ""))
	u.Merge(other)

	sorted := u.Sorted()
	require.Len(t, sorted, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].Name, sorted[1].Name, sorted[2].Name})
	require.Equal(t, filepath.Join("a2", "index.js"), u["a"].DefinitionFile, "merged usage wins on collision")
	require.True(t, u.Has("b"))
	require.False(t, u.Has("d"))
}

func TestUsage_Clone(t *testing.T) {
	var nilUsage Usage
	require.NotNil(t, nilUsage.Clone())

	u := Usage{}
	u.Add(NewReducer("a", "a.js", ""))
	clone := u.Clone()
	clone.Add(NewReducer("b", "b.js", ""))

	require.Len(t, u, 1)
	require.Len(t, clone, 2)
}
