// Package bytecode implements the process-wide compiled-artifact cache
// (spec.md §4.4, component C1): at-most-one compile per fingerprint, shared
// across every tenant whose templates happen to fingerprint identically,
// with bounded LRU eviction under memory pressure.
package bytecode

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/scriptcore/runtime/rterr"
	"github.com/scriptcore/runtime/template"
)

// Artifact is the opaque compiled form of a template source. The scriptvm
// package is the only consumer that interprets Program; to the cache it is
// an inert value that is cheap to copy and share across every VM whose
// template fingerprints identically.
type Artifact struct {
	Program any
}

// Loader compiles a template source into an Artifact. It is invoked at most
// once per fingerprint at any instant, regardless of how many concurrent
// resolve calls name that fingerprint.
type Loader func(fp template.Fingerprint) (Artifact, error)

// DefaultCapacity bounds the number of distinct fingerprints the cache
// retains before evicting the least recently used entry.
const DefaultCapacity = 4096

// Cache memoises compiled artifacts by fingerprint.
type Cache struct {
	lru   *lru.Cache[template.Fingerprint, Artifact]
	group singleflight.Group
}

// NewCache builds a Cache with the given LRU capacity. A non-positive
// capacity falls back to DefaultCapacity.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[template.Fingerprint, Artifact](capacity)
	if err != nil {
		return nil, fmt.Errorf("bytecode: new cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Resolve returns the cached artifact for fp, or invokes loader to produce
// it. Concurrent Resolve calls for the same fp share exactly one loader
// invocation (golang.org/x/sync/singleflight); a failed load is returned to
// every waiter and is never cached, matching spec.md §4.4.
func (c *Cache) Resolve(fp template.Fingerprint, loader Loader) (Artifact, error) {
	if artifact, ok := c.lru.Get(fp); ok {
		return artifact, nil
	}

	v, err, _ := c.group.Do(string(fp), func() (any, error) {
		// Re-check: another goroutine may have populated the cache between
		// our miss above and acquiring the singleflight slot.
		if artifact, ok := c.lru.Get(fp); ok {
			return artifact, nil
		}
		artifact, err := loader(fp)
		if err != nil {
			return Artifact{}, fmt.Errorf("%w: %v", rterr.ErrCompileFailure, err)
		}
		c.lru.Add(fp, artifact)
		return artifact, nil
	})
	if err != nil {
		return Artifact{}, err
	}
	return v.(Artifact), nil
}

// Len reports the number of cached fingerprints.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge evicts every cached artifact. Used when the host signals a
// global recompile (e.g. a built-in module source changed).
func (c *Cache) Purge() {
	c.lru.Purge()
}
