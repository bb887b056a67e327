// Package facts turns raw generative-model output into the FactSet shown in a
// video, falling back to a fixed built-in list when the model under-delivers.
package facts

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinFacts is the smallest FactSet a video is rendered with.
	MinFacts = 6
	// MaxFacts caps the FactSet regardless of how much the source returns.
	MaxFacts = 10
	// MinFactRunes discards fragments such as stray headings or "1." lines.
	MinFactRunes = 6
)

// enumerationChars are stripped from the start of every line: digits, dots,
// dashes, bullets, closing parens and spaces, in any order and count.
const enumerationChars = "0123456789.-•) "

// Parse extracts facts from model output. Grammar, applied per line:
//
//	line   = ws* enum* ws* text ws*
//	enum   = one of "0123456789.-•) "
//
// The leading enumeration is removed and the remaining text is kept when it is
// at least MinFactRunes runes long. Order is preserved; nothing is capped here.
func Parse(raw string) []string {
	var facts []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, enumerationChars)
		line = strings.TrimSpace(line)

		if utf8.RuneCountInString(line) < MinFactRunes {
			continue
		}

		facts = append(facts, line)
	}

	return facts
}

// Select pads facts from fallback (in fallback order) up to min and caps the
// result at max. The input slices are not modified.
func Select(facts, fallback []string, min, max int) []string {
	out := make([]string, 0, max)
	for _, f := range facts {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}

	if len(out) < min {
		needed := min - len(out)
		if needed > len(fallback) {
			needed = len(fallback)
		}
		out = append(out, fallback[:needed]...)
	}

	if len(out) > max {
		out = out[:max]
	}

	return out
}
