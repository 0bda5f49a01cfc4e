// Package language provides a coarse script-range language classifier and
// base-tag comparison helpers.
//
// The classifier is deliberately not a real language detector: downstream
// translation matching depends on the classification being consistent, not
// accurate. The priority order is fixed: Japanese kana > Korean hangul >
// Chinese if ideographs form the majority > English default.
package language

import (
	"strings"
	"unicode"
)

// Detect returns a base language tag ("ja", "ko", "zh" or "en") inferred
// from the script ranges present in text.
func Detect(text string) string {
	var letters, kana, hangul, han int
	for _, r := range text {
		if unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			kana++
			letters++
			continue
		}
		if unicode.Is(unicode.Hangul, r) {
			hangul++
			letters++
			continue
		}
		if unicode.Is(unicode.Han, r) {
			han++
			letters++
			continue
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	switch {
	case kana > 0:
		return "ja"
	case hangul > 0:
		return "ko"
	case letters > 0 && han*2 > letters:
		return "zh"
	default:
		return "en"
	}
}

// Base reduces a BCP-47-style tag to its base tag: "en-US" -> "en".
func Base(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}

// SameBase reports whether two tags agree at base-tag granularity.
// An empty tag never agrees with anything.
func SameBase(a, b string) bool {
	ba, bb := Base(a), Base(b)
	return ba != "" && ba == bb
}
