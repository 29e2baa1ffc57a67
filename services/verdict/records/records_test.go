// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package records

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/storage"
)

func TestNewRecord_StampsIDAndTime(t *testing.T) {
	rec := NewRecord(ValidationRecord{Question: "q"})
	if rec.ID == "" {
		t.Error("record must get an id")
	}
	if rec.At.IsZero() {
		t.Error("record must get a timestamp")
	}

	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec = NewRecord(ValidationRecord{ID: "keep", At: fixed})
	if rec.ID != "keep" || !rec.At.Equal(fixed) {
		t.Error("explicit id and timestamp must survive")
	}
}

func TestLogSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sink := NewLogSink(storage.NewMemoryLog())

	for i := 0; i < 5; i++ {
		rec := NewRecord(ValidationRecord{
			Question: fmt.Sprintf("q%d", i),
			Passed:   i%2 == 0,
			Reasons:  []string{"low_overlap"},
		})
		if err := sink.Write(ctx, rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("records = %d, want 5", len(got))
	}
	if got[0].Question != "q0" || got[4].Question != "q4" {
		t.Error("records must replay in append order")
	}
}

func TestLogSink_RecentKeepsNewest(t *testing.T) {
	ctx := context.Background()
	sink := NewLogSink(storage.NewMemoryLog())
	for i := 0; i < 20; i++ {
		if err := sink.Write(ctx, NewRecord(ValidationRecord{Question: fmt.Sprintf("q%d", i)})); err != nil {
			t.Fatal(err)
		}
	}
	got, err := sink.Recent(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("records = %d, want 5", len(got))
	}
	if got[0].Question != "q15" || got[4].Question != "q19" {
		t.Errorf("window = %v..%v, want q15..q19", got[0].Question, got[4].Question)
	}
}

type failingSink struct{ err error }

func (f *failingSink) Write(context.Context, ValidationRecord) error { return f.err }
func (f *failingSink) Close() error                                  { return nil }

func TestMultiSink_AllSinksSeeTheRecord(t *testing.T) {
	ctx := context.Background()
	good := NewLogSink(storage.NewMemoryLog())
	bad := &failingSink{err: errors.New("down")}

	m := NewMultiSink(bad, good, nil)
	err := m.Write(ctx, NewRecord(ValidationRecord{Question: "q"}))
	if err == nil {
		t.Error("first sink error must surface")
	}

	got, err := good.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Error("later sinks must still receive the record")
	}
}
