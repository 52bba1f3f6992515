package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AbbreviateName shortens "Samuel Huang" to "Samuel H" for narrow
// author columns: the first name part plus the initial of the last one.
// Bot accounts and single-part names are returned unchanged.
func AbbreviateName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "[bot]") {
		return strings.Join(strings.Fields(name), " ")
	}

	trimmed := strings.Trim(name, "()\"'`")
	var parts []string
	for _, field := range strings.Fields(trimmed) {
		if p := strings.TrimSuffix(strings.TrimFunc(field, isNameEdge), "."); p != "" {
			parts = append(parts, p)
		}
	}

	switch len(parts) {
	case 0:
		return trimmed
	case 1:
		return parts[0]
	}
	initial, _ := utf8.DecodeRuneInString(parts[len(parts)-1])
	return parts[0] + " " + string(initial)
}

// isNameEdge matches the punctuation stripped from either end of a name part.
func isNameEdge(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-' && r != '\'' && r != '.'
}
