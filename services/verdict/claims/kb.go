// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package claims

// KBVerdict classifies a claim against the evidence documents.
type KBVerdict string

const (
	// KBConsistent means the claim is well supported by evidence.
	KBConsistent KBVerdict = "CONSISTENT_WITH_KB"

	// KBPartial means the claim has weak evidence support.
	KBPartial KBVerdict = "PARTIALLY_CONSISTENT"

	// KBInconsistent means the claim has essentially no evidence
	// support.
	KBInconsistent KBVerdict = "INCONSISTENT_WITH_KB"

	// KBUnknown means no evidence was supplied, so nothing can be
	// said either way.
	KBUnknown KBVerdict = "UNKNOWN"
)

// Overlap buckets for CheckKB.
const (
	kbConsistentMin = 0.3
	kbPartialMin    = 0.1
)

// kbLeadingDocs bounds how many evidence documents CheckKB considers.
const kbLeadingDocs = 3

// CheckKB classifies one claim against the leading evidence documents.
//
// Description:
//
//	Computes the stop-word-filtered token overlap between the claim
//	and the first few evidence documents: the share of claim tokens
//	found in any leading document. Buckets at 0.3 and 0.1.
//
// Inputs:
//
//	claim - The claim to check.
//	evidenceDocs - Retrieved document texts, best-ranked first.
//
// Outputs:
//
//	KBVerdict - KBUnknown when evidenceDocs is empty.
func CheckKB(claim Claim, evidenceDocs []string) KBVerdict {
	if len(evidenceDocs) == 0 {
		return KBUnknown
	}

	claimTokens := tokenize(claim.Text)
	if len(claimTokens) == 0 {
		return KBPartial
	}

	docs := evidenceDocs
	if len(docs) > kbLeadingDocs {
		docs = docs[:kbLeadingDocs]
	}
	docSet := make(map[string]bool)
	for _, doc := range docs {
		for _, tok := range tokenize(doc) {
			docSet[tok] = true
		}
	}

	matched := 0
	for _, tok := range claimTokens {
		if docSet[tok] {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(claimTokens))

	switch {
	case ratio >= kbConsistentMin:
		return KBConsistent
	case ratio >= kbPartialMin:
		return KBPartial
	default:
		return KBInconsistent
	}
}
