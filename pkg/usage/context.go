// Package usage computes the reducers transitively reachable from a source file through
// its import and require graph.
package usage

import (
	"github.com/715d/reduxmapper/internal/analysis"
)

// Stats counts the work done within a traversal context.
type Stats struct {
	FilesScanned int `json:"files_scanned"`
	UsagesFound  int `json:"usages_found"`
	CacheHits    int `json:"cache_hits"`
	CacheMisses  int `json:"cache_misses"`
	Unresolved   int `json:"unresolved"`
	SkippedEdges int `json:"skipped_edges"`
	CycleCuts    int `json:"cycle_cuts"`
}

type cacheKey struct {
	path        string
	restriction string
}

// Context holds the state shared by every scan of one run: the traversal cache, the
// reducers already claimed as global, and counters. It is owned by a single driver and
// is not safe for concurrent use.
type Context struct {
	Stats Stats

	cache        map[cacheKey]analysis.Usage
	cacheEnabled bool
	global       analysis.Usage
}

// NewContext creates a traversal context. With disableCache every file is rescanned on
// each visit; results are identical either way.
func NewContext(disableCache bool) *Context {
	return &Context{
		cache:        make(map[cacheKey]analysis.Usage),
		cacheEnabled: !disableCache,
		global:       analysis.Usage{},
	}
}

// Claim marks every reducer in global as globally loaded, excluding it from all later
// scans. Cached results may contain those reducers, so the cache is dropped.
func (c *Context) Claim(global analysis.Usage) {
	c.global.Merge(global)
	clear(c.cache)
}

// IsGlobal reports whether the reducer name has been claimed as global.
func (c *Context) IsGlobal(name string) bool {
	return c.global.Has(name)
}

// CacheLen returns the number of cached results.
func (c *Context) CacheLen() int {
	return len(c.cache)
}

func (c *Context) lookup(key cacheKey) (analysis.Usage, bool) {
	if !c.cacheEnabled {
		return nil, false
	}
	u, ok := c.cache[key]
	if ok {
		c.Stats.CacheHits++
	} else {
		c.Stats.CacheMisses++
	}
	return u, ok
}

func (c *Context) store(key cacheKey, u analysis.Usage) {
	if c.cacheEnabled {
		c.cache[key] = u
	}
}
