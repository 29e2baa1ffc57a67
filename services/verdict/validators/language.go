// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"strings"
	"unicode"
)

// ===== Language Detection =====

// latinProfiles maps a language code to high-frequency function words
// used for scoring Latin-script text.
var latinProfiles = map[string][]string{
	"en": {"the", "and", "is", "of", "to", "in", "that", "it", "with", "for", "this", "are"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "ein", "eine", "mit", "für", "auf", "sind"},
	"fr": {"le", "la", "les", "et", "est", "une", "des", "que", "pour", "dans", "pas", "sont"},
	"es": {"el", "la", "los", "las", "es", "una", "que", "para", "con", "por", "está", "son"},
}

// minProfileHits is the minimum stopword hits before a Latin-script
// guess is trusted.
const minProfileHits = 2

// DetectLanguage guesses the language code of text. It distinguishes
// the CJK scripts directly and scores Latin text against stopword
// profiles. Returns "unknown" when no guess is trustworthy.
func DetectLanguage(text string) string {
	var han, kana, hangul, cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	// Any kana means Japanese even when Han dominates.
	if kana > 0 {
		return "ja"
	}
	if han > 0 && han >= latin {
		return "zh"
	}
	if hangul > 0 && hangul >= latin {
		return "ko"
	}
	if cyrillic > 0 && cyrillic >= latin {
		return "ru"
	}
	if latin == 0 {
		return "unknown"
	}

	words := strings.Fields(strings.ToLower(text))
	best, bestHits := "unknown", 0
	for code, profile := range latinProfiles {
		hits := 0
		for _, w := range words {
			w = strings.Trim(w, ".,!?;:\"'()[]")
			for _, p := range profile {
				if w == p {
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestHits = code, hits
		}
	}
	if bestHits < minProfileHits {
		return "unknown"
	}
	return best
}

// BaseLanguage reduces a BCP 47 tag to its primary subtag, e.g.
// "de-AT" to "de".
func BaseLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// ===== Language Validator =====

// LanguageValidator checks that the answer is written in the language
// the question was asked in. A mismatch is a hard failure: an answer
// the user cannot read is worthless regardless of its content.
type LanguageValidator struct{}

func (v *LanguageValidator) Name() string { return "language_match" }

func (v *LanguageValidator) Validate(_ context.Context, in *Input) Outcome {
	want := BaseLanguage(in.Language)
	if want == "" || want == "unknown" {
		return Pass()
	}
	got := DetectLanguage(in.Answer)
	if got == "unknown" || got == want {
		return Pass()
	}
	return FromReasons([]string{ReasonLanguageMismatch}, "")
}
