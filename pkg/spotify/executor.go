package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"Melopick-Go/pkg/metrics"
	"Melopick-Go/pkg/music"
)

const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = 500 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
	defaultRetryAfter     = time.Second
	maxErrorBody          = 512
)

// Executor issues catalog HTTP requests with bounded retries. A 429 waits for
// the server supplied Retry-After, 5xx and network failures back off
// exponentially and anything else fails immediately. It knows nothing about
// caching or catalog semantics.
type Executor struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	timeout    time.Duration
	limiter    *rate.Limiter

	// sleep is swapped in tests to record delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithHTTPClient sets the client used for every attempt.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.httpClient = c }
}

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithBaseDelay sets the first exponential backoff step.
func WithBaseDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.baseDelay = d
		}
	}
}

// WithRequestTimeout bounds each individual attempt.
func WithRequestTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRateLimit paces outgoing attempts on the client side.
func WithRateLimit(perSecond float64, burst int) ExecutorOption {
	return func(e *Executor) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// NewExecutor returns an Executor with three attempts, a 500ms base delay
// and a 10s per-attempt timeout unless overridden.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		httpClient: http.DefaultClient,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		timeout:    defaultRequestTimeout,
		sleep:      sleepWithContext,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute sends req and returns the body of a successful response. op names
// the catalog operation for logs and metrics. Once every attempt has failed
// with a retryable error a *music.ExhaustedRetriesError is returned.
func (e *Executor) Execute(req *http.Request, op string) ([]byte, error) {
	ctx := req.Context()
	var last error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify: %s canceled: %w", op, err)
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("spotify: %s rate wait: %w", op, err)
			}
		}

		body, retryAfter, err := e.attempt(ctx, req, op)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("spotify: %s canceled: %w", op, ctx.Err())
		}
		reason, retry := classify(err)
		if !retry {
			return nil, err
		}
		last = err
		if attempt == e.maxRetries-1 {
			break
		}

		delay := e.baseDelay * time.Duration(1<<attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		metrics.CatalogRetries.WithLabelValues(reason).Inc()
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"reason":  reason,
			"delay":   delay,
		}).WithError(err).Warn("retrying catalog request")

		if err := e.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("spotify: %s canceled: %w", op, err)
		}
	}
	return nil, &music.ExhaustedRetriesError{Attempts: e.maxRetries, Last: last}
}

// attempt performs one bounded HTTP round trip. The returned duration is the
// server requested wait for 429 responses.
func (e *Executor) attempt(ctx context.Context, req *http.Request, op string) ([]byte, time.Duration, error) {
	actx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	r := req.Clone(actx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, 0, fmt.Errorf("spotify: reset request body: %w", err)
		}
		r.Body = body
	}

	start := time.Now()
	resp, err := e.httpClient.Do(r)
	if err != nil {
		metrics.CatalogRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, 0, fmt.Errorf("%w: %w", music.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.CatalogRequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %w", music.ErrTransientNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		d := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, d, &music.RateLimitedError{RetryAfter: d}
	default:
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, 0, &music.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
}

// classify decides whether err is worth another attempt and labels it.
func classify(err error) (string, bool) {
	var se *music.StatusError
	switch {
	case errors.Is(err, music.ErrRateLimited):
		return "rate_limited", true
	case errors.As(err, &se):
		return "server_error", se.StatusCode >= 500
	case errors.Is(err, music.ErrTransientNetwork):
		return "network", true
	default:
		return "", false
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date. A missing or
// unusable header means one second.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
		if seconds == 0 {
			return defaultRetryAfter
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return defaultRetryAfter
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
