package contract

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/codetime/schema"
)

// Default values for configuration.
const (
	DefaultMaxCommits        = 1000
	MaxCommitsLimit          = 10000
	DefaultMaxFilesPerCommit = 100
	DefaultMaxTreeFiles      = 100
	DefaultBatchSize         = 20
	DefaultConcurrency       = 4
	MaxConcurrency           = 16
	DefaultTopK              = 10
	DefaultContextCommits    = 10
	DefaultContextChars      = 12000
	DefaultRetentionDays     = 7
	DefaultListLimit         = 50
	DefaultListen            = "127.0.0.1:8000"
	DefaultServerURL         = "http://127.0.0.1:8000"
	DefaultJobTimeout        = "10m"
	DefaultBatchTimeout      = "60s"
	DefaultLLMTimeout        = "90s"
	DefaultPollInterval      = "2s"
	DefaultPollTimeout       = "5m"
	DefaultCleanupSchedule   = "@hourly"
)

// DefaultWorkers is the default number of concurrent pipelines.
var DefaultWorkers = max(1, runtime.GOMAXPROCS(0)/2)

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	MaxCommits        int
	MaxFilesPerCommit int
	MaxTreeFiles      int
	Workers           int

	BatchSize    int
	Concurrency  int
	JobTimeout   time.Duration
	BatchTimeout time.Duration

	TopK            int
	ContextCommits  int
	ContextChars    int
	LLMProvider     schema.LLMProvider
	LLMModel        string
	LLMAPIKey       string // Please use env var as this is plaintext
	LLMBaseURL      string
	LLMTimeout      time.Duration
	CacheBackend    schema.DatabaseBackend
	CacheDBConnect  string // Please use env var as this is plaintext
	RetentionDays   int
	CleanupSchedule string

	Listen       string
	ServerURL    string
	PollInterval time.Duration
	PollTimeout  time.Duration

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	LogLevel   slog.Level
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Pipeline ---
	MaxCommits        int    `mapstructure:"max-commits"`
	MaxFilesPerCommit int    `mapstructure:"max-files-per-commit"`
	MaxTreeFiles      int    `mapstructure:"max-tree-files"`
	Workers           int    `mapstructure:"workers"`
	BatchSize         int    `mapstructure:"batch-size"`
	Concurrency       int    `mapstructure:"concurrency"`
	JobTimeout        string `mapstructure:"job-timeout"`
	BatchTimeout      string `mapstructure:"batch-timeout"`

	// --- Query ---
	TopK           int `mapstructure:"top-k"`
	ContextCommits int `mapstructure:"context-commits"`
	ContextChars   int `mapstructure:"context-chars"`

	// --- LLM ---
	LLMProvider string `mapstructure:"llm-provider"`
	LLMModel    string `mapstructure:"llm-model"`
	LLMAPIKey   string `mapstructure:"llm-api-key"`
	LLMBaseURL  string `mapstructure:"llm-base-url"`
	LLMTimeout  string `mapstructure:"llm-timeout"`

	// --- Storage ---
	CacheBackend    string `mapstructure:"cache-backend"`
	CacheDBConnect  string `mapstructure:"cache-db-connect"`
	RetentionDays   int    `mapstructure:"retention-days"`
	CleanupSchedule string `mapstructure:"cleanup-schedule"`

	// --- Server and client ---
	Listen       string `mapstructure:"listen"`
	ServerURL    string `mapstructure:"server"`
	PollInterval string `mapstructure:"poll-interval"`
	PollTimeout  string `mapstructure:"poll-timeout"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`
	LogLevel   string `mapstructure:"log-level"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validatePipelineInputs(cfg, input); err != nil {
		return err
	}
	if err := validateQueryInputs(cfg, input); err != nil {
		return err
	}
	if err := validateLLMInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := validateOutputInputs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.BadgerBackend, schema.MemoryBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// parseDuration parses a duration flag, falling back to def when empty.
func parseDuration(name, value, def string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		value = def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (received %s)", name, value)
	}
	return d, nil
}

// validatePipelineInputs covers ingestion bounds, workers and synthesis batching.
func validatePipelineInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Commit bounds ---
	if input.MaxCommits <= 0 || input.MaxCommits > MaxCommitsLimit {
		return fmt.Errorf("max-commits must be greater than 0 and cannot exceed %d (received %d)", MaxCommitsLimit, input.MaxCommits)
	}
	cfg.MaxCommits = input.MaxCommits

	cfg.MaxFilesPerCommit = input.MaxFilesPerCommit
	if cfg.MaxFilesPerCommit <= 0 {
		cfg.MaxFilesPerCommit = DefaultMaxFilesPerCommit
	}
	cfg.MaxTreeFiles = input.MaxTreeFiles
	if cfg.MaxTreeFiles <= 0 {
		cfg.MaxTreeFiles = DefaultMaxTreeFiles
	}

	// --- 2. Workers ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Synthesis batching ---
	if input.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0 (received %d)", input.BatchSize)
	}
	cfg.BatchSize = input.BatchSize
	if input.Concurrency <= 0 || input.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d (received %d)", MaxConcurrency, input.Concurrency)
	}
	cfg.Concurrency = input.Concurrency

	// --- 4. Timeouts ---
	var err error
	if cfg.JobTimeout, err = parseDuration("job-timeout", input.JobTimeout, DefaultJobTimeout); err != nil {
		return err
	}
	if cfg.BatchTimeout, err = parseDuration("batch-timeout", input.BatchTimeout, DefaultBatchTimeout); err != nil {
		return err
	}
	return nil
}

// validateQueryInputs covers query-time bounds and client polling.
func validateQueryInputs(cfg *Config, input *ConfigRawInput) error {
	if input.TopK <= 0 {
		return fmt.Errorf("top-k must be greater than 0 (received %d)", input.TopK)
	}
	cfg.TopK = input.TopK

	cfg.ContextCommits = input.ContextCommits
	if cfg.ContextCommits <= 0 {
		cfg.ContextCommits = DefaultContextCommits
	}
	cfg.ContextChars = input.ContextChars
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = DefaultContextChars
	}

	cfg.Listen = input.Listen
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	cfg.ServerURL = strings.TrimRight(input.ServerURL, "/")

	var err error
	if cfg.PollInterval, err = parseDuration("poll-interval", input.PollInterval, DefaultPollInterval); err != nil {
		return err
	}
	if cfg.PollTimeout, err = parseDuration("poll-timeout", input.PollTimeout, DefaultPollTimeout); err != nil {
		return err
	}
	if cfg.PollInterval >= cfg.PollTimeout {
		return fmt.Errorf("poll-interval (%s) must be shorter than poll-timeout (%s)", cfg.PollInterval, cfg.PollTimeout)
	}
	return nil
}

// validateLLMInputs resolves the provider. A remote provider without a key
// falls back to the offline provider.
func validateLLMInputs(cfg *Config, input *ConfigRawInput) error {
	provider := schema.LLMProvider(strings.ToLower(strings.TrimSpace(input.LLMProvider)))
	if provider == "" {
		provider = schema.AnthropicProvider
	}
	if _, ok := schema.ValidLLMProviders[provider]; !ok {
		return fmt.Errorf("invalid llm-provider '%s'. must be anthropic, openai, offline", input.LLMProvider)
	}
	cfg.LLMAPIKey = strings.TrimSpace(input.LLMAPIKey)
	if provider != schema.OfflineProvider && cfg.LLMAPIKey == "" {
		provider = schema.OfflineProvider
	}
	cfg.LLMProvider = provider
	cfg.LLMModel = input.LLMModel
	cfg.LLMBaseURL = strings.TrimRight(input.LLMBaseURL, "/")

	var err error
	if cfg.LLMTimeout, err = parseDuration("llm-timeout", input.LLMTimeout, DefaultLLMTimeout); err != nil {
		return err
	}
	return nil
}

// validateBackendConfigs validates cache backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, badger, memory", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.RetentionDays = input.RetentionDays
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	cfg.CleanupSchedule = input.CleanupSchedule
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = DefaultCleanupSchedule
	}
	return nil
}

// validateOutputInputs covers CLI presentation and logging.
func validateOutputInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, json", input.Output)
	}
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	level := input.LogLevel
	if level == "" {
		level = "info"
	}
	if cfg.LogLevel, err = ParseLogLevel(level); err != nil {
		return err
	}
	return nil
}
