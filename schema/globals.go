package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/suggestions.yaml
var suggestionsYAML []byte

// suggestionTable is the static table of suggested questions.
type suggestionTable struct {
	Generic []string            `yaml:"generic"`
	Repos   map[string][]string `yaml:"repos"`
}

var (
	// suggestions is resolved exactly once on first use.
	suggestions     suggestionTable
	suggestionsErr  error
	suggestionsOnce sync.Once
)

// LoadSuggestions parses the embedded suggestion table. It is safe to call
// repeatedly; the table is parsed only once.
func LoadSuggestions() error {
	suggestionsOnce.Do(func() {
		var table suggestionTable
		if err := yaml.Unmarshal(suggestionsYAML, &table); err != nil {
			suggestionsErr = fmt.Errorf("failed to parse suggestion table: %w", err)
			return
		}
		normalized := make(map[string][]string, len(table.Repos))
		for key, qs := range table.Repos {
			normalized[strings.ToLower(key)] = qs
		}
		table.Repos = normalized
		suggestions = table
	})
	return suggestionsErr
}

// SuggestionsFor returns the suggested questions for a repository identity
// (owner/name). Unknown identities fall back to the generic set.
func SuggestionsFor(identity string) []string {
	if err := LoadSuggestions(); err != nil {
		return nil
	}
	if qs, ok := suggestions.Repos[strings.ToLower(identity)]; ok && len(qs) > 0 {
		return append([]string(nil), qs...)
	}
	return append([]string(nil), suggestions.Generic...)
}
