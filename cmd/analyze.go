package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/huangsam/codetime/core/query"
	"github.com/huangsam/codetime/internal/apiclient"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/outwriter"
	"github.com/huangsam/codetime/schema"
	"github.com/spf13/cobra"
)

// progressPrinter reports poller transitions on w, one line per change.
func progressPrinter(w io.Writer) func(apiclient.Update) {
	var last apiclient.PollState
	var lastStatus schema.JobStatus
	return func(u apiclient.Update) {
		if u.State == last && u.Status == lastStatus {
			return
		}
		last, lastStatus = u.State, u.Status
		switch {
		case u.State == apiclient.PollingState && u.Status != "":
			_, _ = fmt.Fprintf(w, "⏳ %s is %s (%s elapsed)\n", u.RepoID, u.Status, u.Elapsed.Round(time.Second))
		case u.State == apiclient.SubmittingState:
			_, _ = fmt.Fprintln(w, "🚀 Submitting analysis...")
		}
	}
}

// pollTimeout is how long analyze waits. An in-process job dies with this
// process, so the local wait covers the whole job timeout.
func pollTimeout() time.Duration {
	if cfg.ServerURL == "" {
		return max(cfg.PollTimeout, cfg.JobTimeout+cfg.PollInterval)
	}
	return cfg.PollTimeout
}

// runAnalyze submits repoURL and polls until the job settles.
func runAnalyze(b backend, repoURL string, maxCommits int, w io.Writer) (apiclient.Result, error) {
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt)
	defer stop()

	poller := apiclient.NewPoller(b, cfg.PollInterval, pollTimeout())
	poller.OnUpdate(progressPrinter(w))
	return poller.Run(ctx, repoURL, maxCommits)
}

// analyzeCmd submits a repository and waits for the analysis.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-url>",
	Short: "Analyze a repository's commit history",
	Long: `Clone a repository, classify its commits and summarize how it evolved.

A completed analysis is returned from the cache without running again.
Progress is printed to stderr while the job runs; the report goes to stdout.

The pipeline runs inside this process unless --server points at a running
codetime server.

Examples:
  # Analyze the most recent 500 commits
  codetime analyze https://github.com/spf13/cobra --max-commits 500

  # Submit to a server and print JSON
  codetime analyze https://github.com/spf13/cobra --server http://127.0.0.1:8000 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		b, release, err := selectBackend()
		if err != nil {
			contract.LogFatal("Failed to start analysis backend", err)
		}
		defer release()

		res, err := runAnalyze(b, args[0], cfg.MaxCommits, os.Stderr)
		if err != nil {
			switch {
			case errors.Is(err, apiclient.ErrPollTimeout):
				_, _ = fmt.Fprintf(os.Stderr, "⌛ Stopped waiting after %s\n", pollTimeout())
				if cfg.ServerURL != "" {
					_, _ = fmt.Fprintf(os.Stderr, "Check later with: codetime status %s --server %s\n", res.RepoID, cfg.ServerURL)
				}
				return
			case res.State == apiclient.CancelledState:
				return
			}
			contract.LogFatal("Failed to analyze repository", errors.New(contract.UserMessage(err)))
		}
		if err := outwriter.NewOutWriter(cfg).WriteAnalysis(res.Response); err != nil {
			contract.LogFatal("Failed to write analysis", err)
		}
		if res.State == apiclient.FailedState {
			release()
			os.Exit(1)
		}
	},
}

// submitCmd queues an analysis on a server and returns at once.
var submitCmd = &cobra.Command{
	Use:   "submit <repo-url>",
	Short: "Queue an analysis on a codetime server without waiting",
	Long: `Submit a repository to the server given by --server and print the job id.
Follow the job with the status command.

In-process jobs stop when the command exits, so --server is required.

Examples:
  codetime submit https://github.com/spf13/cobra --server http://127.0.0.1:8000`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if cfg.ServerURL == "" {
			contract.LogFatal("Failed to submit analysis", errors.New("--server is required"))
		}
		res, err := apiclient.New(cfg.ServerURL, 0).Submit(rootCtx, args[0], cfg.MaxCommits)
		if err != nil {
			contract.LogFatal("Failed to submit analysis", errors.New(contract.UserMessage(err)))
		}
		if err := outwriter.NewOutWriter(cfg).WriteSubmit(res); err != nil {
			contract.LogFatal("Failed to write submission", err)
		}
	},
}

// statusCmd prints a job's status and, when completed, its report.
var statusCmd = &cobra.Command{
	Use:   "status <repo-id>",
	Short: "Show the status and report of an analysis",
	Long: `Read an analysis job by id. Completed jobs include the full report.

Examples:
  codetime status 0a1b2c3d4e5f60718293a4b5c6d7e8f9`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		b, release, err := selectBackend()
		if err != nil {
			contract.LogFatal("Failed to start analysis backend", err)
		}
		defer release()

		resp, err := b.GetStatus(rootCtx, args[0])
		if err != nil {
			contract.LogFatal("Failed to read analysis", errors.New(contract.UserMessage(err)))
		}
		if err := outwriter.NewOutWriter(cfg).WriteAnalysis(resp); err != nil {
			contract.LogFatal("Failed to write analysis", err)
		}
	},
}

// queryCmd asks a question about a completed analysis.
var queryCmd = &cobra.Command{
	Use:   "query <repo-id> <question>",
	Short: "Ask a question about a repository's history",
	Long: `Answer a natural-language question from the commits most relevant to it.

The answer cites commits as evidence and may include a timeline and insights.
The analysis must be completed first.

Examples:
  codetime query 0a1b2c3d4e5f60718293a4b5c6d7e8f9 "How did authentication change?"`,
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		b, release, err := selectBackend()
		if err != nil {
			contract.LogFatal("Failed to start analysis backend", err)
		}
		defer release()

		res, err := b.Query(rootCtx, args[0], args[1])
		if err != nil {
			contract.LogFatal("Failed to answer query", errors.New(contract.UserMessage(err)))
		}
		if err := outwriter.NewOutWriter(cfg).WriteQuery(res); err != nil {
			contract.LogFatal("Failed to write answer", err)
		}
	},
}

// visualizeCmd prints the timeline, heatmap and ownership views.
var visualizeCmd = &cobra.Command{
	Use:   "visualize <repo-id>",
	Short: "Show timeline, file heatmap and ownership of an analysis",
	Long: `Print the data behind the evolution charts of a completed analysis.

Use --output json to feed the data into your own charting tool.

Examples:
  codetime visualize 0a1b2c3d4e5f60718293a4b5c6d7e8f9 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		b, release, err := selectBackend()
		if err != nil {
			contract.LogFatal("Failed to start analysis backend", err)
		}
		defer release()

		data, err := b.Visualize(rootCtx, args[0])
		if err != nil {
			contract.LogFatal("Failed to build visualization", errors.New(contract.UserMessage(err)))
		}
		if err := outwriter.NewOutWriter(cfg).WriteVisualization(data); err != nil {
			contract.LogFatal("Failed to write visualization", err)
		}
	},
}

// suggestionsCmd lists suggested questions for a repository.
var suggestionsCmd = &cobra.Command{
	Use:     "suggestions <repo-url>",
	Short:   "List suggested questions for a repository",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		// Suggestions never touch storage, so the local path skips the pipeline.
		suggestions := query.Suggestions(args[0])
		if cfg.ServerURL != "" {
			var err error
			if suggestions, err = apiclient.New(cfg.ServerURL, 0).Suggestions(rootCtx, args[0]); err != nil {
				contract.LogFatal("Failed to list suggestions", errors.New(contract.UserMessage(err)))
			}
		}
		if err := outwriter.NewOutWriter(cfg).WriteSuggestions(suggestions); err != nil {
			contract.LogFatal("Failed to write suggestions", err)
		}
	},
}
