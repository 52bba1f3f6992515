package contract

import (
	"errors"
)

// Sentinel errors shared across the pipeline. Wrap them with fmt.Errorf("...: %w").
var (
	// ErrSourceUnavailable means the repository is missing, private or unreachable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound means no job exists for the given id.
	ErrNotFound = errors.New("analysis not found")

	// ErrNotReady means the job exists but has not completed.
	ErrNotReady = errors.New("analysis not ready")

	// ErrInvalidInput means the caller sent a malformed request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrJobTimeout means the pipeline exceeded its wall-clock ceiling.
	ErrJobTimeout = errors.New("analysis timed out")

	// ErrRateLimited means the LLM provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream means the LLM provider failed or returned an unusable reply.
	ErrUpstream = errors.New("upstream failure")
)

// UserMessage maps an error to a short, human-readable string that is safe to
// show to API callers. Raw upstream bodies and stack traces never leak.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return "Repository could not be reached. Check that the URL is correct and the repository is public."
	case errors.Is(err, ErrJobTimeout):
		return "Analysis took too long and was stopped. Try again with a smaller commit limit."
	case errors.Is(err, ErrNotFound):
		return "Repository not analyzed yet."
	case errors.Is(err, ErrNotReady):
		return "Analysis is not completed yet."
	case errors.Is(err, ErrInvalidInput):
		return "Invalid request."
	case errors.Is(err, ErrRateLimited):
		return "The language model is busy. Please retry shortly."
	default:
		return "Analysis failed due to an internal error."
	}
}
