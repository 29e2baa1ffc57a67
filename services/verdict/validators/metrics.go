// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for validation chain operations.
var meter = otel.Meter("veridian.validators")

var (
	runsTotal    metric.Int64Counter
	runDuration  metric.Float64Histogram
	reasonsTotal metric.Int64Counter
	patchesTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runsTotal, err = meter.Int64Counter(
			"validator_runs_total",
			metric.WithDescription("Total validator executions by validator and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runDuration, err = meter.Float64Histogram(
			"validator_run_duration_seconds",
			metric.WithDescription("Validator execution duration by validator"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reasonsTotal, err = meter.Int64Counter(
			"validator_reasons_total",
			metric.WithDescription("Total reason tags emitted by tag and class"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		patchesTotal, err = meter.Int64Counter(
			"validator_patches_total",
			metric.WithDescription("Total patched answers proposed by validator"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordValidatorRun records one validator execution.
func recordValidatorRun(ctx context.Context, name string, out Outcome, elapsed time.Duration) {
	if runsTotal == nil {
		return
	}
	runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("validator", name),
		attribute.Bool("passed", out.Passed),
	))
	runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("validator", name),
	))
	for _, r := range out.Reasons {
		class := "soft"
		if IsHard(r) {
			class = "hard"
		}
		reasonsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", r),
			attribute.String("class", class),
		))
	}
	if out.PatchedAnswer != "" {
		patchesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("validator", name),
		))
	}
}
