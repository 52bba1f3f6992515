// Package main measures end-to-end timings of the codetime CLI.
// Each repository is analyzed several times with the in-memory backend
// (every run pays for clone, ingest and synthesis) and then with a fresh
// SQLite cache (the first run is cold, the rest are cache hits). A query is
// timed against the cached analysis. Results are written as CSV.
//
// Prerequisites:
// - codetime binary installed and available in PATH
// - git and network access to the benchmark repositories
//
// Usage: go run benchmark/main.go [max-commits]
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/huangsam/codetime/schema"
)

// BenchmarkResult holds the timings of one repository.
type BenchmarkResult struct {
	Repository  string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
	QueryTime   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	MaxCommits  int
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Query       string
	Repos       []string
}

func main() {
	config := BenchmarkConfig{
		MaxCommits:  500,
		Timeout:     10 * time.Minute,
		NoCacheRuns: 2,
		CacheRuns:   4,
		Query:       "How did error handling evolve?",
		Repos: []string{
			"https://github.com/spf13/cobra",
			"https://github.com/sharkdp/fd",
			"https://github.com/gin-gonic/gin",
		},
	}
	if len(os.Args) == 2 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Printf("Usage: %s [max-commits]\n", os.Args[0])
			os.Exit(1)
		}
		config.MaxCommits = n
	}

	if _, err := exec.LookPath("codetime"); err != nil {
		fmt.Printf("Prerequisites check failed: codetime binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Benchmark complete\n")
	for _, r := range results {
		fmt.Printf("  %-40s No-cache: %s, Cold: %s, Warm: %s, Query: %s\n", r.Repository, r.NoCacheTime, r.ColdTime, r.WarmTime, r.QueryTime)
	}
}

// runBenchmarks times every configured repository.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	fmt.Printf("Starting benchmark: %d repos, %d commits, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Repos), config.MaxCommits, config.Timeout, config.NoCacheRuns, config.CacheRuns)

	results := make([]BenchmarkResult, 0, len(config.Repos))
	for _, repo := range config.Repos {
		fmt.Printf("Benchmarking %s\n", repo)
		results = append(results, runBenchmarkSuite(config, repo))
	}
	return results
}

// runBenchmarkSuite runs the no-cache, cache and query phases for one repository.
func runBenchmarkSuite(config BenchmarkConfig, repo string) BenchmarkResult {
	result := BenchmarkResult{Repository: repo, ColdTime: "TIMEOUT", QueryTime: "FAILED"}

	// Phase 1: every run analyzes from scratch
	fmt.Printf("  No-cache phase (%d runs)\n", config.NoCacheRuns)
	times, _ := timeAnalyze(config, repo, []string{"--cache-backend", "memory"}, config.NoCacheRuns)
	result.NoCacheTime = average(times)

	// Phase 2: a fresh SQLite cache, cold first run then cache hits
	dir, err := os.MkdirTemp("", "codetime-benchmark-*")
	if err != nil {
		fmt.Printf("  Failed to create cache dir: %v\n", err)
		result.WarmTime = "FAILED"
		return result
	}
	defer func() { _ = os.RemoveAll(dir) }()
	cacheArgs := []string{"--cache-backend", "sqlite", "--cache-db-connect", filepath.Join(dir, "cache.db")}

	fmt.Printf("  Cache phase (%d runs)\n", config.CacheRuns)
	times, repoID := timeAnalyze(config, repo, cacheArgs, config.CacheRuns)
	if len(times) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", times[0])
		times = times[1:]
	}
	result.WarmTime = average(times)

	// Phase 3: one query against the cached analysis
	if repoID != "" {
		args := append([]string{"query", repoID, config.Query, "--output", "json"}, cacheArgs...)
		if elapsed, _, ok := runTimed(config.Timeout, args); ok {
			result.QueryTime = fmt.Sprintf("%.3fs", elapsed)
		}
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s, Query: %s\n",
		result.NoCacheTime, result.ColdTime, result.WarmTime, result.QueryTime)
	return result
}

// timeAnalyze runs analyze numRuns times and returns the successful timings
// and the job id reported by the last success.
func timeAnalyze(config BenchmarkConfig, repo string, extra []string, numRuns int) ([]float64, string) {
	args := append([]string{"analyze", repo, "--output", "json", "--max-commits", strconv.Itoa(config.MaxCommits)}, extra...)

	var times []float64
	var repoID string
	for range numRuns {
		elapsed, out, ok := runTimed(config.Timeout, args)
		if !ok {
			continue
		}
		var resp schema.AnalysisResponse
		if err := json.Unmarshal(out, &resp); err != nil || resp.Status != schema.CompletedStatus {
			continue
		}
		times = append(times, elapsed)
		repoID = resp.RepoID
	}
	return times, repoID
}

// runTimed runs codetime with args and reports its wall-clock seconds.
func runTimed(timeout time.Duration, args []string) (float64, []byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "codetime", args...)
	cmd.Env = append(os.Environ(), "CODETIME_LOG_LEVEL=error")

	start := time.Now()
	out, err := cmd.Output()
	if err != nil {
		return 0, nil, false
	}
	return time.Since(start).Seconds(), out, true
}

func average(times []float64) string {
	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return fmt.Sprintf("%.3fs", sum/float64(len(times)))
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	filename := fmt.Sprintf("/tmp/codetime_benchmark_%s.csv", time.Now().Format("20060102_150405"))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"repo", "no_cache_avg", "cold_time", "warm_avg", "query_time"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Repository, r.NoCacheTime, r.ColdTime, r.WarmTime, r.QueryTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}
