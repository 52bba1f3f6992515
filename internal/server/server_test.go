package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/codetime/core/ingest"
	"github.com/huangsam/codetime/core/jobs"
	"github.com/huangsam/codetime/core/query"
	"github.com/huangsam/codetime/core/synth"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/iocache"
	"github.com/huangsam/codetime/internal/llm"
	"github.com/huangsam/codetime/internal/metrics"
	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRepoURL = "https://github.com/acme/widgets"

type staticSource struct {
	snap *schema.SourceSnapshot
	err  error
}

func (s staticSource) FetchCommits(context.Context, string, int) (*schema.SourceSnapshot, error) {
	return s.snap, s.err
}

func history() *schema.SourceSnapshot {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	commits := []schema.CommitRecord{
		{Hash: strings.Repeat("a", 40), Author: "alice", Date: base.Add(2 * time.Hour), Message: "fix: session auth expiry", Files: []string{"auth/session.go"}, Insertions: 4, Deletions: 2, FilesChanged: 1},
		{Hash: strings.Repeat("b", 40), Author: "bob", Date: base.Add(time.Hour), Message: "feat: add csv export", Files: []string{"export/csv.go"}, Insertions: 40, FilesChanged: 1},
		{Hash: strings.Repeat("c", 40), Author: "alice", Date: base, Message: "docs: describe setup", Files: []string{"README.md"}, Insertions: 10, FilesChanged: 1},
	}
	return &schema.SourceSnapshot{Commits: commits, Files: []string{"README.md", "auth/session.go", "export/csv.go"}}
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	mgr     *jobs.Manager
	store   contract.CacheStore
}

func newTestEnv(t *testing.T, source contract.CommitSource) *testEnv {
	t.Helper()
	store := iocache.NewMemoryStore()
	m := metrics.New()
	client := llm.NewOfflineClient()
	mgr := jobs.NewManager(store, ingest.NewIngestor(source), synth.New(client, synth.Options{}), m, jobs.Options{Workers: 2})
	t.Cleanup(mgr.Close)
	srv := NewServer(mgr, query.New(store, client, m, query.Options{}), m, "127.0.0.1:0")
	return &testEnv{srv: srv, handler: srv.Handler(), mgr: mgr, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAnalyzeThenQuery(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})

	rec := env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: testRepoURL})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	submitted := decode[schema.SubmitResult](t, rec)
	assert.Equal(t, contract.RepoID(testRepoURL), submitted.RepoID)
	assert.Equal(t, schema.PendingStatus, submitted.Status)

	env.mgr.Wait()

	rec = env.do(t, http.MethodGet, "/analysis/"+submitted.RepoID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[schema.AnalysisResponse](t, rec)
	assert.Equal(t, schema.CompletedStatus, status.Status)
	require.NotNil(t, status.Data)
	assert.Equal(t, 3, status.Data.Stats.TotalCommits)

	rec = env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: testRepoURL + ".git"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[schema.SubmitResult](t, rec).Cached)

	rec = env.do(t, http.MethodPost, "/query", QueryRequest{RepoID: submitted.RepoID, Query: "authentication"})
	require.Equal(t, http.StatusOK, rec.Code)
	answer := decode[schema.QueryResult](t, rec)
	assert.Equal(t, "authentication", answer.Query)
	require.NotEmpty(t, answer.Result.Evidence)
	assert.Equal(t, strings.Repeat("a", 40), answer.Result.Evidence[0].CommitRef)

	rec = env.do(t, http.MethodGet, "/visualize/"+submitted.RepoID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	viz := decode[schema.VisualizationData](t, rec)
	assert.Len(t, viz.Timeline, 1)
	assert.NotEmpty(t, viz.Ownership)

	rec = env.do(t, http.MethodGet, "/analyses?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]schema.EntrySummary](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].TotalCommits)
}

func TestFailedAnalysisReportsMessage(t *testing.T) {
	env := newTestEnv(t, staticSource{err: fmt.Errorf("%w: repository not found", contract.ErrSourceUnavailable)})

	rec := env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: testRepoURL})
	require.Equal(t, http.StatusOK, rec.Code)
	env.mgr.Wait()

	rec = env.do(t, http.MethodGet, "/analysis/"+contract.RepoID(testRepoURL), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[schema.AnalysisResponse](t, rec)
	assert.Equal(t, schema.FailedStatus, status.Status)
	assert.Equal(t, contract.UserMessage(contract.ErrSourceUnavailable), status.ErrorMessage)
	assert.Nil(t, status.Data)

	rec = env.do(t, http.MethodPost, "/query", QueryRequest{RepoID: contract.RepoID(testRepoURL), Query: "why"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"malformed body", http.MethodPost, "/analyze", "{not json", http.StatusBadRequest},
		{"bad url", http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: "not a url"}, http.StatusBadRequest},
		{"too many commits", http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: testRepoURL, MaxCommits: contract.MaxCommitsLimit + 1}, http.StatusBadRequest},
		{"unknown analysis", http.MethodGet, "/analysis/nope", nil, http.StatusNotFound},
		{"unknown visualize", http.MethodGet, "/visualize/nope", nil, http.StatusNotFound},
		{"query unknown", http.MethodPost, "/query", QueryRequest{RepoID: "nope", Query: "q"}, http.StatusNotFound},
		{"query empty", http.MethodPost, "/query", QueryRequest{RepoID: "nope", Query: " "}, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/analysis/nope", nil, http.StatusNotFound},
		{"bad limit", http.MethodGet, "/analyses?limit=zero", nil, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/analyze", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusMethodNotAllowed {
				body := decode[ErrorResponse](t, rec)
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestErrorBodyHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeFailure(rec, errors.New("pq: password authentication failed for user admin"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, contract.UserMessage(errors.New("x")), decode[ErrorResponse](t, rec).Error)
}

func TestDeleteAnalysis(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})
	env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: testRepoURL})
	env.mgr.Wait()

	id := contract.RepoID(testRepoURL)
	rec := env.do(t, http.MethodDelete, "/analysis/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/analysis/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestionsAndHealth(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})

	rec := env.do(t, http.MethodGet, "/suggestions?repo_url=https://github.com/golang/go", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]string](t, rec)
	assert.Equal(t, query.Suggestions("https://github.com/golang/go"), body["suggestions"])

	rec = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})
	env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{RepoURL: testRepoURL})
	env.mgr.Wait()

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "codetime_jobs_submitted_total 1")
}

func TestMetricsDisabled(t *testing.T) {
	store := iocache.NewMemoryStore()
	client := llm.NewOfflineClient()
	mgr := jobs.NewManager(store, ingest.NewIngestor(staticSource{snap: history()}), synth.New(client, synth.Options{}), nil, jobs.Options{})
	t.Cleanup(mgr.Close)
	srv := NewServer(mgr, query.New(store, client, nil, query.Options{}), nil, "127.0.0.1:0")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestScheduleCleanup(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})
	assert.NoError(t, env.srv.ScheduleCleanup("@hourly", 24*time.Hour))
	assert.NoError(t, env.srv.ScheduleCleanup("*/5 * * * *", time.Hour))
	assert.Error(t, env.srv.ScheduleCleanup("every tuesday", time.Hour))
}

func TestRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, staticSource{snap: history()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
