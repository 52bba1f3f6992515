// Package algo holds the pure, deterministic functions of the pipeline:
// categorization, relevance scoring and aggregate statistics.
package algo

import (
	"path"
	"slices"
	"strings"
	"unicode"

	"github.com/huangsam/codetime/schema"
	"github.com/src-d/enry/v2"
)

// categoryKeywords holds the exact-token keyword set per category.
var categoryKeywords = map[schema.Category][]string{
	schema.BugfixCategory: {
		"fix", "fixes", "fixed", "fixing", "bug", "bugs", "bugfix", "hotfix",
		"error", "errors", "issue", "issues", "patch", "patched", "crash", "regression",
	},
	schema.FeatureCategory: {
		"feat", "feature", "features", "add", "adds", "added", "adding",
		"new", "implement", "implements", "implemented", "create", "creates", "created", "introduce", "introduces",
	},
	schema.RefactorCategory: {
		"refactor", "refactors", "refactored", "refactoring", "restructure", "restructured",
		"reorganize", "reorganized", "cleanup", "clean", "simplify", "simplified", "rename", "renamed",
	},
	schema.DocsCategory: {
		"doc", "docs", "documentation", "document", "documented", "readme", "changelog", "comment", "comments", "typo",
	},
	schema.TestCategory: {
		"test", "tests", "testing", "spec", "specs", "coverage", "e2e", "unittest",
	},
	schema.ArchitectureCategory: {
		"architecture", "architectural", "redesign", "redesigned", "migrate", "migrated", "migration",
		"design", "pattern", "structure", "modularize", "monorepo",
	},
	schema.ChoreCategory: {
		"chore", "build", "ci", "cd", "deps", "dependency", "dependencies", "bump", "release",
		"config", "configure", "setup", "deploy", "lint", "format", "merge", "version",
	},
}

// categoryStems extend the keywords to inflected forms: a token starting with
// a stem matches, so "implementing" is a feature and "migrating" architecture.
// Stems are at least minKeywordStem runes; "doc" stays exact-only so that
// "docker" is not documentation.
var categoryStems = map[schema.Category][]string{
	schema.BugfixCategory:       {"fix", "bug", "crash", "regress", "patch", "hotfix"},
	schema.FeatureCategory:      {"feat", "add", "implement", "introduc", "creat"},
	schema.RefactorCategory:     {"refactor", "restructur", "reorganiz", "simplif", "renam", "clean"},
	schema.DocsCategory:         {"document", "readme", "comment"},
	schema.TestCategory:         {"test", "unittest"},
	schema.ArchitectureCategory: {"architect", "redesign", "migrat", "modulariz"},
	schema.ChoreCategory:        {"depend", "bump", "releas", "configur", "deploy", "lint", "format", "merg"},
}

// minKeywordStem is the shortest prefix allowed to match by stem.
const minKeywordStem = 3

// stemExceptions are words that start with a stem but mean something else.
var stemExceptions = []string{"fixture", "address", "addition", "testament", "bugle", "formal", "mergeab"}

// keywordIndex maps a token to the categories it belongs to, built once.
var keywordIndex = func() map[string][]schema.Category {
	idx := make(map[string][]schema.Category)
	for _, c := range schema.AllCategories {
		for _, kw := range categoryKeywords[c] {
			idx[kw] = append(idx[kw], c)
		}
	}
	return idx
}()

// MessageTokens lowercases the message and splits it on every non-alphanumeric rune.
func MessageTokens(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Categorize maps a commit to exactly one category. Categories are tried in
// fixed priority order and the first one whose keyword set matches any message
// token wins. Without a keyword hit the changed files may decide the category.
// The function is pure: identical input always yields identical output.
func Categorize(message string, files []string) schema.Category {
	tokens := MessageTokens(message)
	hits := make(map[schema.Category]bool, len(tokens))
	for _, tok := range tokens {
		for _, c := range keywordIndex[tok] {
			hits[c] = true
		}
		for _, c := range stemCategories(tok) {
			hits[c] = true
		}
	}
	for _, c := range schema.AllCategories {
		if hits[c] {
			return c
		}
	}
	return categorizeByFiles(files)
}

// stemCategories returns the categories with a stem that prefixes tok.
func stemCategories(tok string) []schema.Category {
	for _, ex := range stemExceptions {
		if strings.HasPrefix(tok, ex) {
			return nil
		}
	}
	var out []schema.Category
	for _, c := range schema.AllCategories {
		for _, stem := range categoryStems[c] {
			if len(stem) >= minKeywordStem && strings.HasPrefix(tok, stem) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// categorizeByFiles applies the file-extension override when every changed
// file belongs to the same family.
func categorizeByFiles(files []string) schema.Category {
	if len(files) == 0 {
		return schema.UnknownCategory
	}
	switch {
	case allFiles(files, isDocFile):
		return schema.DocsCategory
	case allFiles(files, isTestFile):
		return schema.TestCategory
	case allFiles(files, isChoreFile):
		return schema.ChoreCategory
	default:
		return schema.UnknownCategory
	}
}

func allFiles(files []string, pred func(string) bool) bool {
	for _, f := range files {
		if !pred(f) {
			return false
		}
	}
	return true
}

func isDocFile(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".md", ".rst", ".adoc", ".txt":
		return true
	}
	return enry.IsDocumentation(p)
}

func isTestFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."):
		return true
	}
	for _, dir := range strings.Split(strings.ToLower(path.Dir(p)), "/") {
		if dir == "test" || dir == "tests" || dir == "__tests__" || dir == "testdata" {
			return true
		}
	}
	return false
}

func isChoreFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	switch base {
	case "makefile", "dockerfile", "go.mod", "go.sum", "package.json", "package-lock.json",
		"yarn.lock", "pnpm-lock.yaml", "cargo.toml", "cargo.lock", ".gitignore", ".editorconfig":
		return true
	}
	if strings.HasPrefix(p, ".github/") || strings.HasPrefix(p, ".circleci/") {
		return true
	}
	return enry.IsConfiguration(p) || enry.IsVendor(p)
}

// FileType returns the lowercase language of a path, or "other" when unknown.
func FileType(p string) string {
	lang := enry.GetLanguage(path.Base(p), nil)
	if lang == "" {
		return "other"
	}
	return strings.ToLower(lang)
}

// Scope lists the distinct file types a commit touched, sorted.
func Scope(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	var scope []string
	for _, f := range files {
		ft := FileType(f)
		if ft == "other" {
			continue
		}
		if _, ok := seen[ft]; ok {
			continue
		}
		seen[ft] = struct{}{}
		scope = append(scope, ft)
	}
	slices.Sort(scope)
	return scope
}

// Impact ranks a change by its size: high above 10 files or 500 lines,
// medium above 3 files or 100 lines, low otherwise.
func Impact(filesChanged, linesChanged int) schema.ImpactLevel {
	switch {
	case filesChanged > 10 || linesChanged > 500:
		return schema.HighImpact
	case filesChanged > 3 || linesChanged > 100:
		return schema.MediumImpact
	default:
		return schema.LowImpact
	}
}

// Classify fills in the derived fields of a freshly ingested commit.
func Classify(c schema.CommitRecord) schema.CommitRecord {
	c.Category = Categorize(c.Message, c.Files)
	c.Scope = Scope(c.Files)
	c.Impact = Impact(c.FilesChanged, c.LinesChanged())
	return c
}
