package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// PollState is the client-side view of one analysis request.
type PollState string

// All poll states.
const (
	IdleState       PollState = "idle"
	SubmittingState PollState = "submitting"
	PollingState    PollState = "polling"
	CompletedState  PollState = "completed"
	FailedState     PollState = "failed"
	TimedOutState   PollState = "timed_out"
	CancelledState  PollState = "cancelled"
)

// pollTransitions lists the allowed next states for every state.
var pollTransitions = map[PollState][]PollState{
	IdleState:       {SubmittingState, CancelledState},
	SubmittingState: {PollingState, CompletedState, FailedState, TimedOutState, CancelledState},
	PollingState:    {CompletedState, FailedState, TimedOutState, CancelledState},
}

// CanTransitionTo reports whether next may follow s.
func (s PollState) CanTransitionTo(next PollState) bool {
	for _, allowed := range pollTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the poll loop has stopped for good.
func (s PollState) IsTerminal() bool {
	return len(pollTransitions[s]) == 0
}

// ErrPollTimeout means the job did not finish within the local poll timeout.
// The server may still be running it.
var ErrPollTimeout = errors.New("gave up waiting for analysis")

// Backend submits jobs and reads their status. Both the HTTP Client and an
// in-process jobs.Manager satisfy it.
type Backend interface {
	Submit(ctx context.Context, repoURL string, maxCommits int) (schema.SubmitResult, error)
	GetStatus(ctx context.Context, repoID string) (schema.AnalysisResponse, error)
}

// Update is reported after every state change and every status read.
type Update struct {
	State    PollState
	RepoID   string
	Status   schema.JobStatus
	Attempts int
	Elapsed  time.Duration
}

// Result is the outcome of one poll run.
type Result struct {
	State    PollState
	RepoID   string
	Cached   bool
	Response schema.AnalysisResponse
	Attempts int
}

// Poller submits one analysis and polls it until a terminal state.
// Cancelling only stops the local loop; the server keeps working.
type Poller struct {
	backend  Backend
	interval time.Duration
	timeout  time.Duration
	onUpdate func(Update)

	mu    sync.Mutex
	state PollState
}

// NewPoller creates a Poller. Non-positive durations use the defaults.
func NewPoller(backend Backend, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval, _ = time.ParseDuration(contract.DefaultPollInterval)
	}
	if timeout <= 0 {
		timeout, _ = time.ParseDuration(contract.DefaultPollTimeout)
	}
	return &Poller{backend: backend, interval: interval, timeout: timeout, state: IdleState}
}

// OnUpdate registers a progress callback. It must be set before Run.
func (p *Poller) OnUpdate(fn func(Update)) {
	p.onUpdate = fn
}

// State returns the current poll state.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) moveTo(next PollState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.CanTransitionTo(next) {
		return fmt.Errorf("invalid poll transition %s -> %s", p.state, next)
	}
	p.state = next
	return nil
}

func (p *Poller) report(u Update) {
	if p.onUpdate != nil {
		p.onUpdate(u)
	}
}

// Run submits repoURL and waits for the job to complete or fail. A Poller
// runs once. A failed job is returned with a nil error; the caller reads
// Result.State. Timeouts return ErrPollTimeout and cancellation ctx.Err().
func (p *Poller) Run(ctx context.Context, repoURL string, maxCommits int) (Result, error) {
	start := time.Now()
	if err := p.moveTo(SubmittingState); err != nil {
		return Result{State: p.State()}, err
	}
	p.report(Update{State: SubmittingState})

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// --- 1. Submit ---
	submitted, err := p.backend.Submit(runCtx, repoURL, maxCommits)
	if err != nil {
		if state, ctxErr := p.interrupted(ctx, runCtx); ctxErr != nil {
			return p.finish(Result{State: state}, start, ctxErr)
		}
		return p.finish(Result{State: FailedState}, start, err)
	}
	res := Result{RepoID: submitted.RepoID, Cached: submitted.Cached}

	if err := p.moveTo(PollingState); err != nil {
		return res, err
	}

	// --- 2. Poll until terminal ---
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		resp, err := p.backend.GetStatus(runCtx, submitted.RepoID)
		res.Attempts++
		switch {
		case err == nil:
			res.Response = resp
			p.report(Update{State: PollingState, RepoID: res.RepoID, Status: resp.Status, Attempts: res.Attempts, Elapsed: time.Since(start)})
			switch resp.Status {
			case schema.CompletedStatus:
				res.State = CompletedState
				return p.finish(res, start, nil)
			case schema.FailedStatus:
				res.State = FailedState
				return p.finish(res, start, nil)
			}
		case errors.Is(err, contract.ErrNotFound):
			res.State = FailedState
			return p.finish(res, start, err)
		default:
			if state, ctxErr := p.interrupted(ctx, runCtx); ctxErr != nil {
				res.State = state
				return p.finish(res, start, ctxErr)
			}
			slog.Debug("Status read failed, retrying", "repo_id", res.RepoID, "error", err)
		}

		select {
		case <-ticker.C:
		case <-runCtx.Done():
			state, ctxErr := p.interrupted(ctx, runCtx)
			res.State = state
			return p.finish(res, start, ctxErr)
		}
	}
}

// interrupted tells a local timeout apart from caller cancellation.
func (p *Poller) interrupted(parent, run context.Context) (PollState, error) {
	switch {
	case parent.Err() != nil:
		return CancelledState, parent.Err()
	case run.Err() != nil:
		return TimedOutState, fmt.Errorf("%w after %s", ErrPollTimeout, p.timeout)
	default:
		return "", nil
	}
}

func (p *Poller) finish(res Result, start time.Time, err error) (Result, error) {
	if moveErr := p.moveTo(res.State); moveErr != nil {
		return res, errors.Join(err, moveErr)
	}
	p.report(Update{State: res.State, RepoID: res.RepoID, Status: res.Response.Status, Attempts: res.Attempts, Elapsed: time.Since(start)})
	return res, err
}
