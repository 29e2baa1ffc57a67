// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// validationsTotal counts pipeline runs by outcome
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_validations_total",
		Help: "Total pipeline validations by outcome",
	}, []string{"outcome"})

	// validationDuration tracks end-to-end validation latency
	validationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verdict_validation_duration_seconds",
		Help:    "End-to-end validation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	})

	// fallbacksTotal counts fallback replies by language
	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_fallbacks_total",
		Help: "Total fallback replies by language",
	}, []string{"language"})

	// retriesTotal counts regeneration retries by trigger
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_retries_total",
		Help: "Total answer regenerations by trigger",
	}, []string{"trigger"})

	// patchesApplied counts patched answers that survived revalidation
	patchesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_patches_applied_total",
		Help: "Total patched answers accepted after revalidation",
	})
)

// Outcome label values.
const (
	outcomePassed   = "passed"
	outcomeWarned   = "passed_with_warnings"
	outcomeFallback = "fallback"
)
