// Package template models the compiled units of tenant code the dispatcher
// routes events to, and the per-tenant ordered collection of them.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint is the content-hash identity of a template source, used as the
// bytecode cache key. Two templates (even across tenants) that fingerprint
// identically share a compiled artifact.
type Fingerprint string

// FingerprintOf computes the content identity of a VFS: the sorted
// path→content pairs are hashed together so identical virtual filesystems
// fingerprint identically regardless of map iteration order.
func FingerprintOf(content map[string]string) Fingerprint {
	paths := make([]string, 0, len(content))
	for p := range content {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(content[p]))
		h.Write([]byte{0})
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Scope is an optional sub-event filter carried by both templates and
// events; a template fires only if its scope set intersects the event's.
type Scope string

// Template is a compiled unit of user code, uniquely named within its
// tenant. It is immutable while referenced by an in-flight dispatch or
// cached VM module registry.
type Template struct {
	Name              string
	SourceFingerprint Fingerprint
	// Content maps virtual filesystem paths to source text, with the
	// template's own entry point conventionally at "main".
	Content          map[string]string
	Language         string
	EventInterest    []string
	CapabilityGrants []string
	Resumable        bool
	Scopes           []Scope
}

// MatchesEvent reports whether the template declared interest in the given
// event name. Interest patterns support a single trailing "*" wildcard
// (e.g. "message.*" matches "message.create"); anything else must match
// exactly.
func (t Template) MatchesEvent(name string) bool {
	for _, pattern := range t.EventInterest {
		if matchPattern(pattern, name) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}

// MatchesScopes reports whether the template's scope set intersects the
// given scopes. An empty template scope set matches unconditionally
// (unscoped templates always fire); an empty requested scope set matches
// only unscoped templates — scoped dispatch is an explicit narrowing.
func (t Template) MatchesScopes(scopes []Scope) bool {
	if len(t.Scopes) == 0 {
		return true
	}
	if len(scopes) == 0 {
		return false
	}
	want := make(map[Scope]struct{}, len(scopes))
	for _, s := range scopes {
		want[s] = struct{}{}
	}
	for _, s := range t.Scopes {
		if _, ok := want[s]; ok {
			return true
		}
	}
	return false
}

// HasGrant reports whether the template was granted the given
// "<domain>:<action>" capability string.
func (t Template) HasGrant(grant string) bool {
	for _, g := range t.CapabilityGrants {
		if g == grant {
			return true
		}
	}
	return false
}

// Set is the ordered sequence of templates for one tenant. Insertion order
// is preserved because dispatch order is observable (spec invariant:
// templates are spawned in insertion order).
type Set struct {
	templates []Template
	byName    map[string]int
}

// NewSet builds a Set preserving the given order.
func NewSet(templates []Template) *Set {
	s := &Set{
		templates: append([]Template(nil), templates...),
		byName:    make(map[string]int, len(templates)),
	}
	for i, t := range s.templates {
		s.byName[t.Name] = i
	}
	return s
}

// Empty reports whether the set has no templates.
func (s *Set) Empty() bool {
	return s == nil || len(s.templates) == 0
}

// All returns the templates in insertion order. The returned slice must not
// be mutated by the caller.
func (s *Set) All() []Template {
	if s == nil {
		return nil
	}
	return s.templates
}

// Get returns the named template, if present.
func (s *Set) Get(name string) (Template, bool) {
	if s == nil {
		return Template{}, false
	}
	idx, ok := s.byName[name]
	if !ok {
		return Template{}, false
	}
	return s.templates[idx], true
}

// MatchingEvent returns, in insertion order, the templates interested in the
// given event name and intersecting scopes. A nil scopes slice means
// unscoped dispatch: every interested template fires regardless of its own
// scope set.
func (s *Set) MatchingEvent(eventName string, scopes []Scope) []Template {
	if s == nil {
		return nil
	}
	var out []Template
	for _, t := range s.templates {
		if !t.MatchesEvent(eventName) {
			continue
		}
		if scopes != nil && !t.MatchesScopes(scopes) {
			continue
		}
		out = append(out, t)
	}
	return out
}
