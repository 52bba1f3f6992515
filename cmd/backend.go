package cmd

import (
	"context"

	"github.com/huangsam/codetime/core/ingest"
	"github.com/huangsam/codetime/core/jobs"
	"github.com/huangsam/codetime/core/query"
	"github.com/huangsam/codetime/core/synth"
	"github.com/huangsam/codetime/internal/apiclient"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/llm"
	"github.com/huangsam/codetime/internal/metrics"
	"github.com/huangsam/codetime/schema"
)

// backend is what the client commands need, served either by this process
// or by a remote codetime server.
type backend interface {
	apiclient.Backend
	Query(ctx context.Context, repoID, question string) (*schema.QueryResult, error)
	Visualize(ctx context.Context, repoID string) (*schema.VisualizationData, error)
	Suggestions(ctx context.Context, repoURL string) ([]string, error)
	List(ctx context.Context, limit int) ([]schema.EntrySummary, error)
	Delete(ctx context.Context, repoID string) error
}

var (
	_ backend = &apiclient.Client{} // Compile-time check
	_ backend = &localBackend{}     // Compile-time check
)

// services is the in-process pipeline built from cfg.
type services struct {
	metrics *metrics.Metrics
	jobs    *jobs.Manager
	engine  *query.Engine
}

// newServices wires the ingestor, synthesizer, job manager and query engine
// around store.
func newServices(store contract.CacheStore) *services {
	model := llm.New(cfg)
	m := metrics.New()
	source := ingest.NewGitSource(contract.NewLocalGitClient(), cfg.MaxFilesPerCommit, cfg.MaxTreeFiles)
	mgr := jobs.NewManager(store, ingest.NewIngestor(source), synth.New(model, synth.OptionsFromConfig(cfg)), m, jobs.OptionsFromConfig(cfg))
	return &services{
		metrics: m,
		jobs:    mgr,
		engine:  query.New(store, model, m, query.OptionsFromConfig(cfg)),
	}
}

// startServices opens the store and builds the in-process pipeline.
func startServices() (*services, error) {
	store, err := openStores()
	if err != nil {
		return nil, err
	}
	return newServices(store), nil
}

// localBackend serves client commands from the in-process pipeline.
type localBackend struct {
	*jobs.Manager
	engine *query.Engine
}

// Query answers question from the cached analysis.
func (b *localBackend) Query(ctx context.Context, repoID, question string) (*schema.QueryResult, error) {
	return b.engine.Ask(ctx, repoID, question)
}

// Visualize builds the chart data for a completed analysis.
func (b *localBackend) Visualize(ctx context.Context, repoID string) (*schema.VisualizationData, error) {
	return b.engine.Visualize(ctx, repoID)
}

// Suggestions lists suggested questions for repoURL.
func (b *localBackend) Suggestions(_ context.Context, repoURL string) ([]string, error) {
	return query.Suggestions(repoURL), nil
}

// selectBackend returns the remote client when --server is set, otherwise
// the in-process pipeline. The returned func releases it.
func selectBackend() (backend, func(), error) {
	if cfg.ServerURL != "" {
		return apiclient.New(cfg.ServerURL, 0), func() {}, nil
	}
	svc, err := startServices()
	if err != nil {
		return nil, nil, err
	}
	return &localBackend{Manager: svc.jobs, engine: svc.engine}, svc.jobs.Close, nil
}
