// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package claims

import (
	"fmt"
	"strings"
)

// Relation classifies the relationship between a pair of claims.
type Relation string

const (
	// RelationContradiction means the two claims cannot both hold.
	RelationContradiction Relation = "CONTRADICTION"

	// RelationRedundant means the two claims assert the same thing.
	RelationRedundant Relation = "REDUNDANT"

	// RelationConsistent means no conflict was detected.
	RelationConsistent Relation = "CONSISTENT"
)

// redundantOverlapMin is the token-overlap ratio above which two
// claims with identical entities and values are redundant.
const redundantOverlapMin = 0.7

// PairKey identifies an unordered claim pair as "i-j" with i < j,
// indexes referring to positions in the checked slice.
func PairKey(i, j int) string {
	if j < i {
		i, j = j, i
	}
	return fmt.Sprintf("%d-%d", i, j)
}

// CheckPairwise classifies every unordered pair of claims.
//
// Description:
//
//	A pair is a CONTRADICTION when the claims share discourse context
//	(overlapping topical keywords) and their extracted values differ
//	under a known contradiction rule: time values with different
//	numbers, or entities from the fixed incompatible-pair list.
//	A pair is REDUNDANT when entity sets and values are identical and
//	token overlap exceeds 0.7. Everything else is CONSISTENT.
//
//	Pure function: identical input yields an identical map.
//
// Inputs:
//
//	cs - The claims to compare, typically from Extractor.Extract.
//
// Outputs:
//
//	map[string]Relation - One entry per unordered pair, keyed by
//	PairKey(i, j).
func CheckPairwise(cs []Claim) map[string]Relation {
	result := make(map[string]Relation)
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			result[PairKey(i, j)] = classifyPair(cs[i], cs[j])
		}
	}
	return result
}

// classifyPair decides the relation for one claim pair.
func classifyPair(a, b Claim) Relation {
	shared := sharedKeywords(a.Text, b.Text)

	if len(shared) > 0 {
		if valuesContradict(a.Values, b.Values) {
			return RelationContradiction
		}
		if entitiesIncompatible(a.Entities, b.Entities) {
			return RelationContradiction
		}
	}

	if sameEntities(a.Entities, b.Entities) && sameValues(a.Values, b.Values) &&
		overlapRatio(a.Text, b.Text) > redundantOverlapMin {
		return RelationRedundant
	}

	return RelationConsistent
}

// sharedKeywords returns the topical tokens common to both texts.
func sharedKeywords(a, b string) []string {
	setA := tokenSet(a)
	var shared []string
	for _, tok := range tokenize(b) {
		if setA[tok] {
			shared = append(shared, tok)
			delete(setA, tok) // count each token once
		}
	}
	return shared
}

// valuesContradict reports whether the two value maps carry the same
// kind of time value with different numbers.
func valuesContradict(a, b map[string]string) bool {
	for kind, va := range a {
		vb, ok := b[kind]
		if !ok {
			continue
		}
		if va != vb && leadingNumber(va) != leadingNumber(vb) {
			return true
		}
	}
	return false
}

// leadingNumber returns the first whitespace-separated field that
// parses as digits, or "".
func leadingNumber(v string) string {
	for _, field := range strings.Fields(v) {
		digits := true
		for _, r := range field {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits && field != "" {
			return field
		}
	}
	return ""
}

// entitiesIncompatible reports whether one claim carries entity X and
// the other entity Y for a known-incompatible pair (X, Y).
func entitiesIncompatible(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, e := range a {
		setA[e] = true
	}
	setB := make(map[string]bool, len(b))
	for _, e := range b {
		setB[e] = true
	}
	for _, pair := range incompatibleEntities {
		if (setA[pair[0]] && setB[pair[1]]) || (setA[pair[1]] && setB[pair[0]]) {
			return true
		}
	}
	return false
}

// sameEntities reports whether two entity lists contain the same set.
func sameEntities(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, e := range a {
		set[e] = true
	}
	for _, e := range b {
		if !set[e] {
			return false
		}
	}
	return true
}

// sameValues reports whether two value maps are equal.
func sameValues(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// overlapRatio is the share of the smaller token set found in the
// larger one. 1.0 for identical sets, 0.0 for disjoint or empty.
func overlapRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	small, large := setA, setB
	if len(setB) < len(setA) {
		small, large = setB, setA
	}
	matched := 0
	for tok := range small {
		if large[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(small))
}
