// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9'-]*`)

var overlapStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"it": true, "its": true, "of": true, "to": true, "in": true,
	"on": true, "for": true, "with": true, "this": true, "that": true,
	"by": true, "as": true, "at": true, "from": true,
}

// tokenSet lowercases text and returns its content words, dropping
// stopwords and single characters.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 2 || overlapStopWords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// overlapRatio is the share of a's tokens also present in b.
// Returns 0 when a is empty.
func overlapRatio(a, b map[string]bool) float64 {
	if len(a) == 0 {
		return 0
	}
	matched := 0
	for w := range a {
		if b[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(a))
}

// containsAnyPhrase reports whether lowered text contains any of the
// given lowercase phrases.
func containsAnyPhrase(lowered string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return p, true
		}
	}
	return "", false
}
