package ingest

import (
	"strings"
	"unicode"
)

// normalizeWhitespace collapses every run of whitespace into a single space.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences breaks whitespace-normalised text after '.', '!' or '?' when
// the next word starts with an upper-case letter. Abbreviations such as
// "Mr." or "e.g." do not end a sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// terminator must be followed by a space and an upper-case letter
		if i+2 >= len(runes) || runes[i+1] != ' ' || !unicode.IsUpper(runes[i+2]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i+1]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 2
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// isAbbreviation reports whether the word ending the segment (including the
// trailing period) looks like "Mr." / "Dr." or a dotted initialism like "e.g.".
func isAbbreviation(segment []rune) bool {
	wordStart := len(segment)
	for wordStart > 0 && segment[wordStart-1] != ' ' {
		wordStart--
	}
	word := segment[wordStart:]

	// Title-case two letter abbreviation: "Mr.", "Dr.", "St."
	if len(word) == 3 && unicode.IsUpper(word[0]) && unicode.IsLower(word[1]) {
		return true
	}

	// Dotted initialism ending: "e.g.", "i.e.", "U.S."
	n := len(word)
	if n >= 4 && word[n-3] == '.' && isWordRune(word[n-2]) && isWordRune(word[n-4]) {
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
