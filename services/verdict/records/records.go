// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package records persists one ValidationRecord per validated answer
// and reads them back for threshold optimization.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/storage"
)

// ValidationRecord is the durable outcome of one pipeline run.
type ValidationRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`

	Question string `json:"question"`
	Language string `json:"language,omitempty"`

	// Category classifies the query: general, philosophical, or
	// role_play.
	Category string `json:"category,omitempty"`

	Passed       bool     `json:"passed"`
	Reasons      []string `json:"reasons,omitempty"`
	UsedFallback bool     `json:"used_fallback"`
	UsedPatch    bool     `json:"used_patch"`
	Retried      bool     `json:"retried"`

	// OverlapScore is the share of answer tokens found in the
	// evidence; ConfidenceScore is the chain's folded confidence.
	OverlapScore    float64 `json:"overlap_score"`
	ConfidenceScore float64 `json:"confidence_score"`
	HasCitations    bool    `json:"has_citations"`

	EvidenceCount int                `json:"evidence_count"`
	LatencyMS     int64              `json:"latency_ms"`
	Thresholds    map[string]float64 `json:"thresholds,omitempty"`
}

// NewRecord stamps id and timestamp on a record.
func NewRecord(rec ValidationRecord) ValidationRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	return rec
}

// Sink receives validation records.
type Sink interface {
	Write(ctx context.Context, rec ValidationRecord) error
	Close() error
}

// ===== Append-Log Sink =====

// LogSink writes records as line-delimited JSON to an append log.
type LogSink struct {
	log storage.AppendLog
}

// NewLogSink wraps an append log.
func NewLogSink(log storage.AppendLog) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Write(ctx context.Context, rec ValidationRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("records: encoding record: %w", err)
	}
	if err := s.log.Append(ctx, raw); err != nil {
		return fmt.Errorf("records: appending record: %w", err)
	}
	return nil
}

func (s *LogSink) Close() error { return s.log.Close() }

// Recent returns the newest n records from the sink's log in append
// order.
func (s *LogSink) Recent(ctx context.Context, n int) ([]ValidationRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]ValidationRecord, 0, n)
	err := s.log.Replay(ctx, func(record []byte) error {
		var rec ValidationRecord
		if err := json.Unmarshal(record, &rec); err != nil {
			// Tolerate a torn tail line.
			return nil
		}
		out = append(out, rec)
		if len(out) > n {
			out = out[1:]
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("records: replaying log: %w", err)
	}
	return out, nil
}

// ===== Multi Sink =====

// MultiSink fans records out to several sinks. The first error wins
// but every sink still sees the record.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks. Nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Write(ctx context.Context, rec ValidationRecord) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
