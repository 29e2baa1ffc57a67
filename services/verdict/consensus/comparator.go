// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import "context"

// Status classifies the outcome of a comparator call. Failures are
// values, not panics or sentinel errors, so the breaker state machine
// transitions on data.
type Status string

const (
	// StatusSuccess means the comparator produced a usable result.
	StatusSuccess Status = "success"

	// StatusTimeout means the call exceeded its deadline.
	StatusTimeout Status = "timeout"

	// StatusError means the call failed for any other reason.
	StatusError Status = "error"
)

// Contradiction kinds reported by comparators.
const (
	KindDate   = "date"
	KindNumber = "number"
	KindName   = "name"
	KindEvent  = "event"
)

// CompareResult is the outcome of one pairwise document comparison.
type CompareResult struct {
	// Status is success, timeout, or error.
	Status Status

	// Contradiction is true when the documents make incompatible
	// factual statements. Only meaningful when Status is success.
	Contradiction bool

	// Kind is the contradiction category: date, number, name, event.
	Kind string

	// Detail is a short human-readable description of the conflict.
	Detail string

	// Confidence is the comparator's self-reported confidence in the
	// contradiction, 0.0 to 1.0.
	Confidence float64

	// Err carries the underlying error for timeout/error statuses.
	Err error
}

// NoContradiction is a successful result with nothing detected.
func NoContradiction() CompareResult {
	return CompareResult{Status: StatusSuccess}
}

// Comparator compares two evidence documents for factual
// contradictions (differing dates, numbers, names, or named events).
//
// Implementations must respect ctx cancellation and return a timeout
// result rather than blocking past the deadline. Stylistic or
// perspective differences must not be reported as contradictions.
//
// Thread Safety: implementations must be safe for concurrent use.
type Comparator interface {
	// Compare examines docA and docB and reports any factual
	// contradiction between them.
	Compare(ctx context.Context, docA, docB string) CompareResult
}
