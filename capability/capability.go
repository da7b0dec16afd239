// Package capability defines the grant-string vocabulary and per-call gating
// (grant check + rate limit) that guards every host service a script can
// reach. The plugins behind each domain (discord, kv, http, message,
// permissions, time) are external collaborators; this package only owns the
// vocabulary and the gate.
package capability

import (
	"errors"
	"fmt"
	"time"

	"github.com/scriptcore/runtime/catrate"
)

// Domain is one of the capability catalogue's top-level service areas,
// carried over from the original's register.rs plugin catalogue.
type Domain string

// The fixed capability domain vocabulary. CapabilityDenied messages quote
// these so operators can tell which plugin a script tried to reach.
const (
	DomainDiscord     Domain = "discord"
	DomainKV          Domain = "kv"
	DomainHTTP        Domain = "http"
	DomainMessage     Domain = "message"
	DomainPermissions Domain = "permissions"
	DomainTime        Domain = "time"
)

// Grant is a "<domain>:<action>" string attached to a template. A script
// call into a capability succeeds only if the invoking template's grant set
// contains the exact matching string.
type Grant string

// New constructs a Grant from a domain and action, e.g. New(DomainKV, "set").
func New(domain Domain, action string) Grant {
	return Grant(fmt.Sprintf("%s:%s", domain, action))
}

// Domain returns the domain component of the grant.
func (g Grant) Domain() Domain {
	for i := 0; i < len(g); i++ {
		if g[i] == ':' {
			return Domain(g[:i])
		}
	}
	return Domain(g)
}

// ErrDenied is returned when a template's grant set lacks the required
// capability string.
var ErrDenied = errors.New("capability: denied")

// ErrRateLimited is returned when a domain:action's rate limiter has
// exhausted its budget for the current window.
var ErrRateLimited = errors.New("capability: rate limited")

// Set is a template's fixed grant set, checked on every capability call.
type Set map[Grant]struct{}

// NewSet builds a Set from a template's capability_grants strings.
func NewSet(grants []string) Set {
	s := make(Set, len(grants))
	for _, g := range grants {
		s[Grant(g)] = struct{}{}
	}
	return s
}

// Allows reports whether the set contains the exact grant.
func (s Set) Allows(g Grant) bool {
	_, ok := s[g]
	return ok
}

// Limiter rate-limits capability calls per (tenant, domain, action),
// delegating the sliding-window accounting to catrate. One Limiter is shared
// process-wide; categories are namespaced by caller.
type Limiter struct {
	inner *catrate.Limiter
}

// DefaultRates is a starting-point multi-window budget for capability calls:
// bursty but bounded short-term, stricter sustained. Hosts may construct
// their own Limiter with different windows via NewLimiter.
var DefaultRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 120,
}

// NewLimiter builds a Limiter over the given window→budget map. It panics if
// rates are invalid (non-positive or non-monotonic), matching
// catrate.NewLimiter's own contract.
func NewLimiter(rates map[time.Duration]int) *Limiter {
	return &Limiter{inner: catrate.NewLimiter(rates)}
}

// category joins tenant, domain and action into one catrate category key.
func category(tenantKey string, domain Domain, action string) string {
	return tenantKey + "|" + string(domain) + ":" + action
}

// Allow reports whether a call to domain:action by tenantKey is within
// budget, consuming one unit of budget if so.
func (l *Limiter) Allow(tenantKey string, domain Domain, action string) bool {
	_, ok := l.inner.Allow(category(tenantKey, domain, action))
	return ok
}

// Gate performs the two-step check spec.md §4.7 requires before any
// capability call proceeds: the template's grant set, then the rate
// limiter. grants and limiter may be nil only in tests that bypass gating
// entirely; production call sites always supply both.
func Gate(grants Set, limiter *Limiter, tenantKey string, domain Domain, action string) error {
	g := New(domain, action)
	if !grants.Allows(g) {
		return fmt.Errorf("%w: %s", ErrDenied, g)
	}
	if limiter != nil && !limiter.Allow(tenantKey, domain, action) {
		return fmt.Errorf("%w: %s", ErrRateLimited, g)
	}
	return nil
}
