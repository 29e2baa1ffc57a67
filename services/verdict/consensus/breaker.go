// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package consensus detects factual contradictions between evidence
// documents via an external pairwise comparator, protected by a
// circuit breaker.
//
// The comparator is the only external dependency of the validation
// pipeline. Its failures are never treated as contradictions: a
// timeout or error degrades to "no contradiction detected" and counts
// against the breaker.
package consensus

import (
	"sync"
	"time"
)

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that
	// opens the breaker. Default: 2.
	FailureThreshold int

	// DisableDuration is how long the breaker stays open before a
	// half-open retry is allowed. Default: 10 minutes.
	DisableDuration time.Duration

	// Clock returns the current time. Defaults to time.Now; tests
	// inject a fake clock.
	Clock func() time.Time
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 2,
		DisableDuration:  10 * time.Minute,
	}
}

// Breaker is an explicitly constructed, injectable circuit breaker
// shared by all concurrent validations.
//
// States:
//
//   - CLOSED: failureCount below threshold, calls proceed.
//   - OPEN: disabledUntil is in the future, calls are skipped.
//   - HALF-OPEN: disabledUntil has passed, the next call is attempted;
//     success closes the breaker, failure re-opens it with a fresh
//     deadline.
//
// Thread Safety: safe for concurrent use; every transition is a
// single critical section so concurrent failures cannot flip the
// breaker inconsistently.
type Breaker struct {
	mu            sync.Mutex
	failureCount  int
	disabledUntil time.Time
	threshold     int
	disableFor    time.Duration
	now           func() time.Time
}

// NewBreaker creates a Breaker from config, filling zero fields with
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.DisableDuration <= 0 {
		cfg.DisableDuration = def.DisableDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Breaker{
		threshold:  cfg.FailureThreshold,
		disableFor: cfg.DisableDuration,
		now:        cfg.Clock,
	}
}

// Allow reports whether a call may proceed. It returns false only
// while the breaker is open and the disable deadline has not passed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disabledUntil.IsZero() {
		return true
	}
	return !b.now().Before(b.disabledUntil)
}

// RecordSuccess closes the breaker: failure count resets to zero and
// any disable deadline is cleared.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.disabledUntil = time.Time{}
}

// RecordFailure counts one failure and opens the breaker when the
// threshold is reached. A failure during half-open re-opens with a
// fresh deadline.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	if b.failureCount >= b.threshold {
		b.disabledUntil = b.now().Add(b.disableFor)
	}
}

// Snapshot returns the current failure count and disable deadline.
// The deadline is the zero time while the breaker is closed.
func (b *Breaker) Snapshot() (failureCount int, disabledUntil time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount, b.disabledUntil
}
