package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/huangsam/codetime/internal/apiclient"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/iocache"
	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withConfig swaps the global config for the duration of a test.
func withConfig(t *testing.T, c *contract.Config) {
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestSharedSetup_Defaults(t *testing.T) {
	withConfig(t, &contract.Config{})
	t.Chdir(t.TempDir())

	initConfig()
	require.NoError(t, sharedSetup(context.Background(), rootCmd, nil))

	assert.Equal(t, contract.DefaultMaxCommits, cfg.MaxCommits)
	assert.Equal(t, contract.DefaultTopK, cfg.TopK)
	assert.Equal(t, schema.SQLiteBackend, cfg.CacheBackend)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.PollTimeout)
	assert.Equal(t, contract.DefaultListen, cfg.Listen)
	assert.Empty(t, cfg.ServerURL)
}

func TestPollTimeout(t *testing.T) {
	withConfig(t, &contract.Config{PollInterval: 2 * time.Second, PollTimeout: 5 * time.Minute, JobTimeout: 10 * time.Minute})
	assert.Equal(t, 10*time.Minute+2*time.Second, pollTimeout(), "in-process waits cover the job timeout")

	cfg.ServerURL = "http://127.0.0.1:8000"
	assert.Equal(t, 5*time.Minute, pollTimeout())
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	report := progressPrinter(&buf)

	report(apiclient.Update{State: apiclient.SubmittingState})
	report(apiclient.Update{State: apiclient.PollingState, RepoID: "abc", Status: schema.PendingStatus})
	report(apiclient.Update{State: apiclient.PollingState, RepoID: "abc", Status: schema.PendingStatus, Attempts: 2})
	report(apiclient.Update{State: apiclient.PollingState, RepoID: "abc", Status: schema.ProcessingStatus, Elapsed: 3 * time.Second})

	out := buf.String()
	assert.Contains(t, out, "Submitting analysis")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("abc is pending")), "repeated statuses print once")
	assert.Contains(t, out, "abc is processing (3s elapsed)")
}

func TestSelectBackend_Remote(t *testing.T) {
	withConfig(t, &contract.Config{ServerURL: "http://127.0.0.1:8000"})

	b, release, err := selectBackend()
	require.NoError(t, err)
	defer release()
	assert.IsType(t, &apiclient.Client{}, b)
}

func TestLocalBackend(t *testing.T) {
	withConfig(t, &contract.Config{
		MaxCommits:        10,
		MaxFilesPerCommit: 10,
		MaxTreeFiles:      10,
		Workers:           1,
		BatchSize:         5,
		Concurrency:       1,
		JobTimeout:        time.Minute,
		BatchTimeout:      time.Second,
		TopK:              5,
		LLMProvider:       schema.OfflineProvider,
	})
	svc := newServices(iocache.NewMemoryStore())
	defer svc.jobs.Close()
	b := &localBackend{Manager: svc.jobs, engine: svc.engine}
	ctx := context.Background()

	_, err := b.Query(ctx, "missing", "what changed?")
	assert.ErrorIs(t, err, contract.ErrNotFound)

	_, err = b.Visualize(ctx, "missing")
	assert.ErrorIs(t, err, contract.ErrNotFound)

	entries, err := b.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	suggestions, err := b.Suggestions(ctx, "https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.NotEmpty(t, suggestions)

	_, err = b.Submit(ctx, "not a url", 10)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestOpenStores_UsesCacheManager(t *testing.T) {
	withConfig(t, &contract.Config{CacheBackend: schema.MemoryBackend})
	store := iocache.NewMemoryStore()
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetAnalysisStore").Return(store)

	prev := cacheManager
	SetCacheManager(mgr)
	t.Cleanup(func() { SetCacheManager(prev) })

	got, err := openStores()
	require.NoError(t, err)
	assert.Same(t, store, got)
	mgr.AssertExpectations(t)
}
