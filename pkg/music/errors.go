package music

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors describing the failure classes of the discovery pipeline.
// Concrete errors returned by the catalog client and the engine match these
// through errors.Is.
var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrTransientNetwork = errors.New("transient network failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrNoCandidates     = errors.New("no candidates")
	ErrExhaustedRetries = errors.New("retries exhausted")
	ErrDiscoveryFailed  = errors.New("discovery failed")
	ErrInvalidFilters   = errors.New("invalid filters")
)

// AuthenticationError reports a failed client-credentials exchange.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// RateLimitedError is returned for HTTP 429 responses. RetryAfter is the
// server supplied delay.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// StatusError is an unexpected HTTP status from the catalog. 5xx statuses
// match ErrTransientNetwork.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrTransientNetwork && e.StatusCode >= 500
}

// ExhaustedRetriesError wraps the last failure seen once every attempt has
// been used.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

func (e *ExhaustedRetriesError) Is(target error) bool { return target == ErrExhaustedRetries }

// DiscoveryFailedError is the user visible failure of GetRecommendations.
// Strategy names the last strategy attempted.
type DiscoveryFailedError struct {
	Strategy string
	Err      error
}

func (e *DiscoveryFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("discovery failed (%s)", e.Strategy)
	}
	return fmt.Sprintf("discovery failed (%s): %v", e.Strategy, e.Err)
}

func (e *DiscoveryFailedError) Unwrap() error { return e.Err }

func (e *DiscoveryFailedError) Is(target error) bool { return target == ErrDiscoveryFailed }
