// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package records

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// influxMeasurement is the measurement name for validation outcomes.
const influxMeasurement = "validation_outcomes"

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	Token  string `yaml:"token" validate:"required"`
	Org    string `yaml:"org" validate:"required"`
	Bucket string `yaml:"bucket" validate:"required"`
}

// InfluxSink writes one point per validation record so dashboards can
// track pass rates and fallback rates over time.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink connects to InfluxDB.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("records: influx url is required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (s *InfluxSink) Write(ctx context.Context, rec ValidationRecord) error {
	fields := map[string]interface{}{
		"latency_ms":       rec.LatencyMS,
		"evidence_count":   rec.EvidenceCount,
		"reason_count":     len(rec.Reasons),
		"reasons":          strings.Join(rec.Reasons, ","),
		"overlap_score":    rec.OverlapScore,
		"confidence_score": rec.ConfidenceScore,
	}
	for name, v := range rec.Thresholds {
		fields["threshold_"+name] = v
	}
	p := influxdb2.NewPoint(
		influxMeasurement,
		map[string]string{
			"passed":        strconv.FormatBool(rec.Passed),
			"used_fallback": strconv.FormatBool(rec.UsedFallback),
			"used_patch":    strconv.FormatBool(rec.UsedPatch),
			"has_citations": strconv.FormatBool(rec.HasCitations),
			"language":      rec.Language,
			"category":      rec.Category,
		},
		fields,
		rec.At,
	)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("records: writing influx point: %w", err)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
