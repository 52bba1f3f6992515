package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_RoundTrips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://github.com/acme/widgets", body["repo_url"])
		assert.Equal(t, 50.0, body["max_commits"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, schema.SubmitResult{RepoID: "r1", Status: schema.PendingStatus})
	})
	mux.HandleFunc("GET /analysis/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, schema.AnalysisResponse{RepoID: r.PathValue("id"), Status: schema.CompletedStatus})
	})
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, schema.QueryResult{Query: body["query"], Result: schema.Answer{Answer: "because"}})
	})
	mux.HandleFunc("GET /visualize/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, schema.VisualizationData{Heatmap: []schema.HeatmapCell{{File: "a.go", Changes: 2}}})
	})
	mux.HandleFunc("GET /suggestions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"suggestions": {r.URL.Query().Get("repo_url")}})
	})
	mux.HandleFunc("GET /analyses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []schema.EntrySummary{{RepoID: "r1"}})
	})
	mux.HandleFunc("DELETE /analysis/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(ts.URL+"/", time.Second)
	ctx := context.Background()

	sub, err := c.Submit(ctx, "https://github.com/acme/widgets", 50)
	require.NoError(t, err)
	assert.Equal(t, "r1", sub.RepoID)

	status, err := c.GetStatus(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, schema.CompletedStatus, status.Status)

	ans, err := c.Query(ctx, "r1", "why?")
	require.NoError(t, err)
	assert.Equal(t, "why?", ans.Query)
	assert.Equal(t, "because", ans.Result.Answer)

	viz, err := c.Visualize(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, viz.Heatmap, 1)

	sugg, err := c.Suggestions(ctx, "https://github.com/golang/go")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/golang/go"}, sugg)

	rows, err := c.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.NoError(t, c.Delete(ctx, "r1"))
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusBadRequest, contract.ErrInvalidInput},
		{http.StatusNotFound, contract.ErrNotFound},
		{http.StatusConflict, contract.ErrNotReady},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.code, map[string]string{"error": "short message"})
			}))
			defer ts.Close()

			_, err := New(ts.URL, time.Second).GetStatus(context.Background(), "r1")
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "short message")
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, schema.AnalysisResponse{RepoID: "r1", Status: schema.ProcessingStatus})
	}))
	defer ts.Close()

	resp, err := New(ts.URL, time.Second).GetStatus(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, schema.ProcessingStatus, resp.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := New(ts.URL, time.Second).GetStatus(context.Background(), "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error: 500")
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestClient_PollsToCompletion(t *testing.T) {
	var reads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, schema.SubmitResult{RepoID: "r1", Status: schema.PendingStatus})
	})
	mux.HandleFunc("GET /analysis/{id}", func(w http.ResponseWriter, _ *http.Request) {
		status := schema.ProcessingStatus
		if reads.Add(1) >= 3 {
			status = schema.CompletedStatus
		}
		writeJSON(w, http.StatusOK, schema.AnalysisResponse{RepoID: "r1", Status: status})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	res, err := NewPoller(New(ts.URL, time.Second), time.Millisecond, 5*time.Second).Run(context.Background(), "https://github.com/acme/widgets", 0)
	require.NoError(t, err)
	assert.Equal(t, CompletedState, res.State)
	assert.Equal(t, 3, res.Attempts)
}
