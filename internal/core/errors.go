package core

import (
	"errors"
	"fmt"
)

// Error kinds for the service-wide taxonomy. Fatal errors surface to clients
// as structured JSON; per-source failures ride in a request's errors list.
var (
	// ErrValidation covers empty or malformed user input.
	ErrValidation = errors.New("validation error")

	// ErrSafetyViolation marks a URL rejected by the SSRF guard. The URL is
	// never fetched.
	ErrSafetyViolation = errors.New("unsafe URL rejected")

	// ErrAdapterFailure is a single-source network/parse/quota failure. It is
	// isolated to its adapter and never fails the request.
	ErrAdapterFailure = errors.New("source adapter failure")

	// ErrStoreContention is a locked embedded store after retry exhaustion.
	// The operation is skipped; the next cycle retries.
	ErrStoreContention = errors.New("store contention")

	// ErrLLMFailure means both the primary and the fallback model failed.
	ErrLLMFailure = errors.New("language model failure")

	// ErrNoData means the trend miner produced zero numeric points.
	ErrNoData = errors.New("no numerical data found")
)

// SourceError ties an adapter failure to the intent that produced it.
// Collected into a request's errors list alongside results.
type SourceError struct {
	Intent  string `json:"intent"`
	Message string `json:"message"`
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Intent, e.Message)
}
