package contract

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/codetime/schema"
)

// Color variables for category labels in console output.
var (
	BugfixColor       = color.New(color.FgRed, color.Bold)
	FeatureColor      = color.New(color.FgGreen, color.Bold)
	RefactorColor     = color.New(color.FgMagenta)
	ArchitectureColor = color.New(color.FgBlue, color.Bold)
	DocsColor         = color.New(color.FgCyan)
	TestColor         = color.New(color.FgYellow)
	MutedColor        = color.New(color.FgHiBlack)
)

// GetColorLabel returns the category name wrapped in its console color.
func GetColorLabel(c schema.Category) string {
	switch c {
	case schema.BugfixCategory:
		return BugfixColor.Sprint(c)
	case schema.FeatureCategory:
		return FeatureColor.Sprint(c)
	case schema.RefactorCategory:
		return RefactorColor.Sprint(c)
	case schema.ArchitectureCategory:
		return ArchitectureColor.Sprint(c)
	case schema.DocsCategory:
		return DocsColor.Sprint(c)
	case schema.TestCategory:
		return TestColor.Sprint(c)
	default:
		return MutedColor.Sprint(c)
	}
}

// SelectOutputFile returns the file handle for output, or os.Stdout if path is empty.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", filePath, err)
	}
	return file, nil
}

// InitLogger installs the process-wide structured logger.
func InitLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// ParseLogLevel converts debug/info/warn/error into a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug/info/warn/error)", s)
	}
	return level, nil
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// LogWarn logs a non-fatal problem.
func LogWarn(msg string, err error) {
	slog.Warn(msg, "error", err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".codetime_cache.db"
	}
	return filepath.Join(homeDir, ".codetime_cache.db")
}

// GetBadgerDirPath returns the directory used by the Badger backend.
func GetBadgerDirPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".codetime_badger"
	}
	return filepath.Join(homeDir, ".codetime_badger")
}

// NormalizeRepoURL trims whitespace, a trailing slash and a trailing .git so
// that equivalent spellings of one repository share an id.
// Only http(s), ssh and scp-style git@ URLs are accepted.
func NormalizeRepoURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: repository URL is required", ErrInvalidInput)
	}
	for {
		trimmed := strings.TrimSuffix(strings.TrimRight(s, "/"), ".git")
		if trimmed == s {
			break
		}
		s = trimmed
	}

	if strings.HasPrefix(s, "git@") {
		if !strings.Contains(s, ":") {
			return "", fmt.Errorf("%w: malformed repository URL %q", ErrInvalidInput, raw)
		}
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: malformed repository URL %q", ErrInvalidInput, raw)
	}
	switch u.Scheme {
	case "http", "https", "ssh":
	default:
		return "", fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return "", fmt.Errorf("%w: repository URL must include host and path", ErrInvalidInput)
	}
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}

// RepoID derives the stable job id for a normalized repository URL.
func RepoID(normalizedURL string) string {
	sum := md5.Sum([]byte(normalizedURL))
	return hex.EncodeToString(sum[:])
}

// RepoIdentity extracts "owner/name" from a repository URL, or "" if it has no such shape.
func RepoIdentity(repoURL string) string {
	s := strings.TrimSpace(repoURL)
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	if rest, ok := strings.CutPrefix(s, "git@"); ok {
		if _, path, found := strings.Cut(rest, ":"); found {
			s = path
		}
	} else if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Path
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return ""
	}
	return strings.ToLower(parts[len(parts)-2] + "/" + parts[len(parts)-1])
}

// TruncateText shortens s to at most maxRunes runes, marking the cut with "...".
func TruncateText(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes || maxRunes <= 3 {
		return s
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
