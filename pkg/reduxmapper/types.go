// Package reduxmapper maps every container module of an application to the reducers and
// sagas it needs, and writes the artifacts consumed by the runtime loader.
package reduxmapper

import (
	"time"

	"github.com/715d/reduxmapper/internal/analysis"
	"github.com/715d/reduxmapper/pkg/usage"
)

// ContainerUsage lists the non-global reducers used by one container file.
type ContainerUsage struct {
	Key      string             `json:"key"`
	File     string             `json:"file"`
	Reducers []analysis.Reducer `json:"reducers"`
}

// Result is the outcome of one mapping run.
type Result struct {
	// Reducers is the registry, sorted by name.
	Reducers []analysis.Reducer `json:"reducers"`

	// Global are the reducers reachable from the main application file, sorted by name.
	Global []analysis.Reducer `json:"global"`

	// Containers are sorted by key.
	Containers []ContainerUsage `json:"containers"`

	Stats Stats `json:"stats"`
}

// Stats summarizes a run.
type Stats struct {
	Reducers       int           `json:"reducers"`
	ContainerFiles int           `json:"container_files"`
	Traversal      usage.Stats   `json:"traversal"`
	Elapsed        time.Duration `json:"elapsed"`
}
