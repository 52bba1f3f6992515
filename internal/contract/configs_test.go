package contract

import (
	"log/slog"
	"testing"
	"time"

	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		MaxCommits:   DefaultMaxCommits,
		Workers:      2,
		BatchSize:    DefaultBatchSize,
		Concurrency:  DefaultConcurrency,
		TopK:         DefaultTopK,
		LLMProvider:  "anthropic",
		CacheBackend: "sqlite",
		Output:       "text",
		Color:        "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "zero max commits", mutate: func(in *ConfigRawInput) { in.MaxCommits = 0 }, expectError: true},
		{name: "too many max commits", mutate: func(in *ConfigRawInput) { in.MaxCommits = MaxCommitsLimit + 1 }, expectError: true},
		{name: "zero workers", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "zero batch size", mutate: func(in *ConfigRawInput) { in.BatchSize = 0 }, expectError: true},
		{name: "concurrency too high", mutate: func(in *ConfigRawInput) { in.Concurrency = MaxConcurrency + 1 }, expectError: true},
		{name: "zero top-k", mutate: func(in *ConfigRawInput) { in.TopK = 0 }, expectError: true},
		{name: "bad job timeout", mutate: func(in *ConfigRawInput) { in.JobTimeout = "ten minutes" }, expectError: true},
		{name: "negative batch timeout", mutate: func(in *ConfigRawInput) { in.BatchTimeout = "-1s" }, expectError: true},
		{name: "poll interval longer than timeout", mutate: func(in *ConfigRawInput) {
			in.PollInterval = "10m"
			in.PollTimeout = "1m"
		}, expectError: true},
		{name: "invalid provider", mutate: func(in *ConfigRawInput) { in.LLMProvider = "oracle" }, expectError: true},
		{name: "invalid backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "mongodb" }, expectError: true},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.CacheBackend = "mysql" }, expectError: true},
		{name: "mysql with dsn", mutate: func(in *ConfigRawInput) {
			in.CacheBackend = "mysql"
			in.CacheDBConnect = "user:pass@tcp(localhost:3306)/codetime"
		}},
		{name: "badger backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "badger" }},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "yaml" }, expectError: true},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "sometimes" }, expectError: true},
		{name: "invalid log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "chatty" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err, "Expected error for %s", tt.name)
			} else {
				assert.NoError(t, err, "Expected no error for %s", tt.name)
			}
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, DefaultMaxFilesPerCommit, cfg.MaxFilesPerCommit)
	assert.Equal(t, DefaultContextCommits, cfg.ContextCommits)
	assert.Equal(t, DefaultContextChars, cfg.ContextChars)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.PollTimeout)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, DefaultCleanupSchedule, cfg.CleanupSchedule)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.UseColors)
}

func TestLLMProviderFallback(t *testing.T) {
	t.Run("missing key falls back to offline", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, validInput()))
		assert.Equal(t, schema.OfflineProvider, cfg.LLMProvider)
	})

	t.Run("key keeps remote provider", func(t *testing.T) {
		input := validInput()
		input.LLMProvider = "OpenAI"
		input.LLMAPIKey = " sk-test "
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, input))
		assert.Equal(t, schema.OpenAIProvider, cfg.LLMProvider)
		assert.Equal(t, "sk-test", cfg.LLMAPIKey)
	})
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	assert.NoError(t, ValidateDatabaseConnectionString(schema.SQLiteBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.MemoryBackend, ""))
	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "user:pass@localhost/db"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost"))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost dbname=codetime"))
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{MaxCommits: 10, LLMModel: "m"}
	clone := cfg.Clone()
	clone.MaxCommits = 20
	assert.Equal(t, 10, cfg.MaxCommits)
	assert.Equal(t, "m", clone.LLMModel)
}
