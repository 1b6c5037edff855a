package reduxmapper

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/internal/fixture"
)

// projectTree is a small application with one global and one container-specific reducer.
const projectTree = `
-- package.json --
{}
-- app/app.jsx --
import { load } from './redux/global/actions';
-- app/redux/global/index.js --
export const PRM_REDUCER_NAME = 'global';
-- app/redux/global/actions.js --
export const load = () => ({ type: 'LOAD' });
-- app/redux/store1/index.js --
export const PRM_REDUCER_NAME = 'store1';
-- app/redux/store1/actions.js --
export const act = () => ({ type: 'ACT' });
-- app/redux/store1/sagas.js --
export default function* root() {}
-- app/containers/container1.jsx --
import { act } from '../redux/store1/actions';
import { load } from '../redux/global/actions';
-- app/containers/container2.jsx --
import React from 'react';
-- app/containers/logo.png --
PNG
-- app/containers/container1.test.js --
import { act } from '../redux/store1/actions';
`

func ptr[T any](v T) *T {
	return &v
}

func testOptions(root string) Options {
	return Options{
		Root:                     root,
		BasePath:                 "app",
		MainAppPath:              "app.jsx",
		ContainerPaths:           []string{"containers"},
		ReduxPaths:               []string{"redux"},
		ActionFilenames:          []string{"actions.js"},
		GlobalReducersOutputPath: "results/globalReducers.js",
		ReducerMapOutputPath:     "results/reducerMap.js",
		SagaFilename:             ptr("sagas.js"),
	}
}

func newTestMapper(t *testing.T, tree string, mutate func(*Options)) (*Mapper, string) {
	t.Helper()
	root := fixture.Tree(t, tree)
	opts := testOptions(root)
	if mutate != nil {
		mutate(&opts)
	}
	m, err := New(opts)
	require.NoError(t, err)
	return m, root
}

func reducerNames(reducers []analysis.Reducer) []string {
	names := make([]string, 0, len(reducers))
	for _, r := range reducers {
		names = append(names, r.Name)
	}
	return names
}

func TestMapper_Run(t *testing.T) {
	m, root := newTestMapper(t, projectTree, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"global", "store1"}, reducerNames(res.Reducers))
	require.Equal(t, []string{"global"}, reducerNames(res.Global))

	require.Len(t, res.Containers, 2)
	require.Equal(t, "./containers/container1.jsx", res.Containers[0].Key)
	require.Equal(t, filepath.Join(root, "app", "containers", "container1.jsx"), res.Containers[0].File)
	require.Equal(t, []string{"store1"}, reducerNames(res.Containers[0].Reducers))
	require.Equal(t, "./containers/container2.jsx", res.Containers[1].Key)
	require.Empty(t, res.Containers[1].Reducers)

	store1 := res.Containers[0].Reducers[0]
	require.Equal(t, filepath.Join(root, "app", "redux", "store1", "index.js"), store1.DefinitionFile)
	require.Equal(t, filepath.Join(root, "app", "redux", "store1", "sagas.js"), store1.SagaFile)

	require.Equal(t, 2, res.Stats.Reducers)
	require.Equal(t, 2, res.Stats.ContainerFiles)
	require.Equal(t, 2, res.Stats.Traversal.UsagesFound)
}

func TestMapper_Execute(t *testing.T) {
	var out bytes.Buffer
	m, root := newTestMapper(t, projectTree, func(o *Options) { o.Output = &out })

	_, err := m.Execute(context.Background())
	require.NoError(t, err)

	globalReducers, err := os.ReadFile(filepath.Join(root, "app", "results", "globalReducers.js"))
	require.NoError(t, err)
	require.Equal(t, `/* AUTOGENERATED FILE - DO NOT MODIFY */
/* generated by reduxmapper */
import global from "../redux/global/index";

export default {
  global,
};
`, string(globalReducers))

	reducerMap, err := os.ReadFile(filepath.Join(root, "app", "results", "reducerMap.js"))
	require.NoError(t, err)
	require.Equal(t, `/* AUTOGENERATED FILE - DO NOT MODIFY */
/* generated by reduxmapper */
module.exports = {
  "global": [
    {
      "reducerName": "global",
      "importFunc": function() { return System.import('../redux/global/index'); }
    }
  ],
  "containerSpecific": {
    "./containers/container1.jsx": {
      "importFunc": function() { return System.import('../containers/container1'); },
      "reducers": [
        {
          "reducerName": "store1",
          "importFunc": function() { return System.import('../redux/store1/index'); },
          "sagaImportFunc": function() { return System.import('../redux/store1/sagas'); }
        }
      ]
    },
    "./containers/container2.jsx": {
      "importFunc": function() { return System.import('../containers/container2'); },
      "reducers": [
      ]
    }
  }
};
`, string(reducerMap))

	require.Contains(t, out.String(), "Finding reducers in "+filepath.Join(root, "app", "redux")+" ...")
	require.Contains(t, out.String(), "Finding global reducers in "+filepath.Join(root, "app", "app.jsx")+" ...")
	require.Contains(t, out.String(), "Scanning reducer usage in "+filepath.Join(root, "app", "containers")+" ...")
	require.Contains(t, out.String(), "SUCCESS!  Found 2 reducers used in ")
}

func TestMapper_Execute_Idempotent(t *testing.T) {
	m, root := newTestMapper(t, projectTree, nil)
	read := func() (string, string) {
		g, err := os.ReadFile(filepath.Join(root, "app", "results", "globalReducers.js"))
		require.NoError(t, err)
		r, err := os.ReadFile(filepath.Join(root, "app", "results", "reducerMap.js"))
		require.NoError(t, err)
		return string(g), string(r)
	}

	_, err := m.Execute(context.Background())
	require.NoError(t, err)
	firstGlobal, firstMap := read()

	m2, err := New(testOptions(root))
	require.NoError(t, err)
	_, err = m2.Execute(context.Background())
	require.NoError(t, err)
	secondGlobal, secondMap := read()

	require.Equal(t, firstGlobal, secondGlobal)
	require.Equal(t, firstMap, secondMap)
}

func TestMapper_Run_CacheTransparency(t *testing.T) {
	tree := projectTree + `
-- app/containers/Shared.js --
import Other from './Other';
import { act } from '../redux/store1/actions';
-- app/containers/Other.js --
import Shared from './Shared';
`
	cached, _ := newTestMapper(t, tree, nil)
	uncached, _ := newTestMapper(t, tree, func(o *Options) { o.DisableCache = true })

	a, err := cached.Run(context.Background())
	require.NoError(t, err)
	b, err := uncached.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, a.Containers, len(b.Containers))
	for i := range a.Containers {
		require.Equal(t, a.Containers[i].Key, b.Containers[i].Key)
		require.Equal(t, reducerNames(b.Containers[i].Reducers), reducerNames(a.Containers[i].Reducers), a.Containers[i].Key)
	}
	require.Equal(t, reducerNames(b.Global), reducerNames(a.Global))
}

func TestMapper_Run_PartitionInvariant(t *testing.T) {
	m, _ := newTestMapper(t, projectTree, nil)
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	global := make(map[string]bool)
	for _, r := range res.Global {
		global[r.Name] = true
	}
	for _, c := range res.Containers {
		for _, r := range c.Reducers {
			require.False(t, global[r.Name], "%s is global but listed for %s", r.Name, c.Key)
		}
	}
}

func TestMapper_Run_Errors(t *testing.T) {
	tests := []struct {
		name       string
		tree       string
		mutate     func(*Options)
		wantCode   Code
		wantDetail string
	}{
		{
			name:     "no reducers",
			tree:     "-- app/app.jsx --\n-- app/redux/readme.txt --\nnothing\n-- app/containers/a.js --\n",
			wantCode: CodeNoReducers,
		},
		{
			name:     "main application file missing",
			tree:     projectTree,
			mutate:   func(o *Options) { o.MainAppPath = "missing.jsx" },
			wantCode: CodeNoMainApp,
		},
		{
			name:     "main application path is a directory",
			tree:     projectTree,
			mutate:   func(o *Options) { o.MainAppPath = "containers" },
			wantCode: CodeNoMainApp,
		},
		{
			name: "no reducer references",
			tree: `
-- app/app.jsx --
import React from 'react';
-- app/redux/store1/index.js --
export const PRM_REDUCER_NAME = 'store1';
-- app/containers/a.js --
import React from 'react';
`,
			wantCode: CodeNoUsages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMapper(t, tt.tree, tt.mutate)
			_, err := m.Run(context.Background())
			require.Error(t, err)

			code, ok := CodeOf(err)
			require.True(t, ok, "expected coded error, got %v", err)
			require.Equal(t, tt.wantCode, code)
		})
	}
}

func TestNew_BadRegexp(t *testing.T) {
	_, err := New(Options{IgnorePaths: "(unclosed"})
	require.Error(t, err)

	code, ok := CodeOf(err)
	require.True(t, ok)
	require.Equal(t, CodeBadRegexp, code)
	require.Contains(t, err.Error(), "BAD REGULAR EXPRESSION: (unclosed")
}

func TestMapper_Run_MissingRoot(t *testing.T) {
	m, _ := newTestMapper(t, projectTree, func(o *Options) { o.ContainerPaths = []string{"nope"} })
	_, err := m.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMapper_Run_IgnorePaths(t *testing.T) {
	tree := projectTree + `
-- app/containers/legacy/Old.jsx --
import { act } from '../../redux/store1/actions';
-- app/redux/legacy/index.js --
export const PRM_REDUCER_NAME = 'legacy';
`
	m, _ := newTestMapper(t, tree, func(o *Options) { o.IgnorePaths = "/legacy" })

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"global", "store1"}, reducerNames(res.Reducers))
	for _, c := range res.Containers {
		require.NotContains(t, c.Key, "legacy")
	}
}

func TestMapper_Run_ContainerRootsOverlap(t *testing.T) {
	m, _ := newTestMapper(t, projectTree, func(o *Options) {
		o.ContainerPaths = []string{"containers", " containers ", ""}
	})

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Containers, 2)
}

func TestMapper_Run_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	m, _ := newTestMapper(t, projectTree, nil)
	_, err := m.Execute(context.Background())
	require.NoError(t, err)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	require.Subset(t, names, []string{
		"Mapper.Run",
		"Mapper.FindReducers",
		"Mapper.scanGlobal",
		"Mapper.scanContainers",
		"Mapper.Write",
	})
}

func TestMapper_OutputPaths(t *testing.T) {
	m, err := New(Options{Root: "/project", BasePath: "app", GlobalReducersOutputPath: "gen/global.js", ReducerMapOutputPath: " gen/map.js "})
	require.NoError(t, err)

	global, reducerMap := m.OutputPaths()
	require.Equal(t, filepath.Join("/project", "app", "gen", "global.js"), global)
	require.Equal(t, filepath.Join("/project", "app", "gen", "map.js"), reducerMap)
	require.Equal(t, filepath.Join("/project", "app"), m.BaseDir())
}
