package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbbreviateName(t *testing.T) {
	tests := map[string]string{
		"popcorn":              "popcorn",
		"Samuel Huang":         "Samuel H",
		"  John   Doe  ":       "John D",
		"J. R. R. Tolkien":     "J T",
		"A. B. C.":             "A C",
		"Ava (Billy) Cathy":    "Ava C",
		"[John Smith]":         "John S",
		"*Security-Bot*":       "Security-Bot",
		"O'Malley-Ryan, Sean":  "O'Malley-Ryan S",
		"user@example.com":     "user@example.com",
		"dependabot[bot]":      "dependabot[bot]",
		"github-actions [bot]": "github-actions [bot]",
		"Hans Müller":          "Hans M",
		"李 明":                  "李 明",
		"राम कुमार":            "राम क",
		"":                     "",
	}

	for in, want := range tests {
		assert.Equal(t, want, AbbreviateName(in), "AbbreviateName(%q)", in)
	}
}
