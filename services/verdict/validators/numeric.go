// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"regexp"
	"strconv"
)

var (
	percentRe  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:%|percent)`)
	negDurRe   = regexp.MustCompile(`(?i)(-\d+(?:\.\d+)?)\s*(?:second|minute|hour|day|week|month|year)s?\b`)
	zeroFreqRe = regexp.MustCompile(`(?i)\bevery\s+0\s*(?:second|minute|hour|day|week|month|year)s?\b`)
	futureRe   = regexp.MustCompile(`\b(2[1-9]\d{2})\b`)
)

// NumericSanityValidator rejects answers containing numbers that
// cannot be right: percentages outside [0, 100], negative or
// zero-interval durations, and years far in the future presented as
// past fact. These are hard failures since an impossible number makes
// the surrounding claim unverifiable.
type NumericSanityValidator struct{}

func (v *NumericSanityValidator) Name() string { return "numeric_sanity" }

func (v *NumericSanityValidator) Validate(_ context.Context, in *Input) Outcome {
	for _, m := range percentRe.FindAllStringSubmatch(in.Answer, -1) {
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if p < 0 || p > 100 {
			return FromReasons([]string{ReasonNumericImplausible}, "")
		}
	}
	if negDurRe.MatchString(in.Answer) || zeroFreqRe.MatchString(in.Answer) {
		return FromReasons([]string{ReasonNumericImplausible}, "")
	}
	if futureRe.MatchString(in.Answer) {
		return FromReasons([]string{ReasonNumericImplausible}, "")
	}
	return Pass()
}
