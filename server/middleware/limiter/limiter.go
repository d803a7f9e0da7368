// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
This file provides per-credential admission control for API requests.

Each API credential gets a Limiter bounding (a) simultaneous in-flight
calls against a concurrent ceiling and (b) calls within a trailing window
against an active ceiling, the latter via a token bucket.

Ceilings come from live configuration: a reload sweeps every cached Limiter
and reconfigures it in place, so in-flight counts survive a ceiling change.
The Limiter cache is LRU-bounded since the set of credentials is unbounded
over the server's lifetime; an evicted entry only loses rate history.
*/
package limiter

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/zanata/zanata-sub001/core/lrucache"
)

// registrySize bounds the number of credentials tracked at once.
const registrySize = 4096

var timeNow = time.Now // Wrapper for time.Now, which allows us to mock it in tests.

// Ceilings are the per-credential admission limits. Zero for both disables
// limiting entirely for that credential's calls.
type Ceilings struct {
	MaxConcurrent int
	MaxActive     int
}

// Disabled reports whether admission control is switched off.
func (c Ceilings) Disabled() bool {
	return c.MaxConcurrent == 0 && c.MaxActive == 0
}

// RejectionKind distinguishes the two admission failures on the wire.
type RejectionKind string

const (
	RejectConcurrent RejectionKind = "TooManyConcurrentRequests"
	RejectActive     RejectionKind = "TooManyActiveRequests"
)

// RejectionError is returned by a Limiter when a call is not admitted.
type RejectionError struct {
	Kind       RejectionKind
	Credential string
}

func (e *RejectionError) Error() string {
	return string(e.Kind) + " for credential " + e.Credential
}

// Limiter bounds the calls of a single credential.
//
// Limiters persist in the registry cache and are reconfigured in place when
// ceilings change, never replaced, so the in-flight count is preserved.
type Limiter struct {
	mu         sync.Mutex
	credential string
	lastAccess time.Time

	maxConcurrent int
	inFlight      int

	maxActive int
	active    *rate.Limiter
}

func newLimiter(credential string, ceilings Ceilings, window time.Duration) *Limiter {
	return &Limiter{
		credential:    credential,
		lastAccess:    timeNow(),
		maxConcurrent: ceilings.MaxConcurrent,
		maxActive:     ceilings.MaxActive,
		active:        newActiveBucket(ceilings.MaxActive, window),
	}
}

// newActiveBucket sizes a token bucket so that at most maxActive calls pass
// within the trailing window. A zero maxActive means no active ceiling.
func newActiveBucket(maxActive int, window time.Duration) *rate.Limiter {
	if maxActive <= 0 {
		return nil
	}

	perSecond := float64(maxActive) / window.Seconds()

	return rate.NewLimiter(rate.Limit(perSecond), maxActive)
}

// AcquireConcurrent claims an in-flight slot, failing immediately with
// TooManyConcurrentRequests at the ceiling. Every successful acquire must
// be paired with Release, typically via defer, so abandoned callers still
// free their slot.
func (l *Limiter) AcquireConcurrent() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastAccess = timeNow()

	if l.maxConcurrent > 0 && l.inFlight >= l.maxConcurrent {
		log.Warn().
			Str("credential", l.credential).
			Int("in_flight", l.inFlight).
			Int("ceiling", l.maxConcurrent).
			Msg("Concurrent request ceiling exceeded")

		return &RejectionError{Kind: RejectConcurrent, Credential: l.credential}
	}

	l.inFlight++

	return nil
}

// Release frees an in-flight slot claimed by AcquireConcurrent.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inFlight > 0 {
		l.inFlight--
	}
}

// AcquireActive consumes one token from the trailing-window bucket, failing
// with TooManyActiveRequests when the credential has been too busy lately.
func (l *Limiter) AcquireActive() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastAccess = timeNow()

	if l.active == nil {
		return nil
	}

	if !l.active.Allow() {
		log.Warn().
			Str("credential", l.credential).
			Int("ceiling", l.maxActive).
			Msg("Active request ceiling exceeded")

		return &RejectionError{Kind: RejectActive, Credential: l.credential}
	}

	return nil
}

// InFlight returns the current number of in-flight calls.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.inFlight
}

// reconfigure swaps ceilings in place. The in-flight count is untouched;
// the active bucket keeps accumulated state where possible by adjusting
// limit and burst rather than being rebuilt.
func (l *Limiter) reconfigure(ceilings Ceilings, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxConcurrent = ceilings.MaxConcurrent
	l.maxActive = ceilings.MaxActive

	switch {
	case ceilings.MaxActive <= 0:
		l.active = nil
	case l.active == nil:
		l.active = newActiveBucket(ceilings.MaxActive, window)
	default:
		perSecond := float64(ceilings.MaxActive) / window.Seconds()
		l.active.SetLimit(rate.Limit(perSecond))
		l.active.SetBurst(ceilings.MaxActive)
	}
}

// Registry hands out the Limiter of each credential from a size-bounded LRU
// cache and applies live ceiling changes to every cached Limiter.
type Registry struct {
	mu       sync.Mutex
	cache    *lrucache.Cache
	ceilings Ceilings
	window   time.Duration
}

// NewRegistry creates a registry with the given initial ceilings and active
// trailing window.
func NewRegistry(ceilings Ceilings, window time.Duration) *Registry {
	cache, err := lrucache.New(registrySize, false)
	if err != nil {
		// Unreachable with a positive constant size.
		panic(err)
	}

	return &Registry{cache: cache, ceilings: ceilings, window: window}
}

// Get returns the Limiter for a credential, creating it on first call.
//
// When ceilings are (0,0) limiting is disabled: Get returns nil and the
// caller proceeds with no bookkeeping at all.
func (r *Registry) Get(credential string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ceilings.Disabled() {
		return nil
	}

	if cached, ok := r.cache.Get(credential); ok {
		if lim, ok := cached.(*Limiter); ok {
			return lim
		}
	}

	lim := newLimiter(credential, r.ceilings, r.window)

	if evicted := r.cache.Add(credential, lim); evicted {
		log.Debug().Str("credential", credential).
			Msg("Limiter cache at capacity, evicted least recently used entry")
	}

	return lim
}

// Reconfigure applies new ceilings to the registry and to every cached
// Limiter in place, preserving in-flight counts across the change.
func (r *Registry) Reconfigure(ceilings Ceilings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ceilings == ceilings {
		return
	}

	r.ceilings = ceilings

	count := 0

	r.cache.Range(func(_ string, value any) bool {
		if lim, ok := value.(*Limiter); ok {
			lim.reconfigure(ceilings, r.window)
			count++
		}

		return true
	})

	log.Info().
		Int("max_concurrent", ceilings.MaxConcurrent).
		Int("max_active", ceilings.MaxActive).
		Int("reconfigured", count).
		Msg("Admission ceilings updated")
}

// Ceilings returns the currently configured ceilings.
func (r *Registry) Ceilings() Ceilings {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ceilings
}
