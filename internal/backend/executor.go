// Package backend talks to the Quill backend API. Every call goes through
// one executor that retries transient failures under a per-call policy, so
// short metadata fetches and multi-minute generation calls share the same
// machinery without sharing deadlines.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// RequestBuilder produces a fresh request for one attempt. Request bodies
// are consumed per attempt, so the executor rebuilds instead of reusing.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Response is a fully read HTTP response. Buffering the body lets the
// attempt deadline be released the moment an attempt completes.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// retryStatusError marks an attempt that drew a retryable status. It never
// escapes Do: on exhaustion it converts to RetryExhaustedError.
type retryStatusError struct {
	Status     int
	RetryAfter string
}

func (e *retryStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.Status)
}

// Executor performs HTTP calls under per-call policies. One executor is
// safe for concurrent use; retries of a single logical call are strictly
// sequential, never overlapping.
type Executor struct {
	client *http.Client
	logger *slog.Logger
}

// NewExecutor builds an executor. The underlying client carries no timeout
// of its own; deadlines come from each call's policy.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}
}

// Do executes one logical call under policy. Retryable statuses, connection
// failures, and per-attempt timeouts retry with backoff; other errors
// propagate immediately. A retryable status persisting through the final
// attempt becomes RetryExhaustedError. Non-retryable statuses are returned
// unmodified for the caller to interpret.
func (e *Executor) Do(ctx context.Context, build RequestBuilder, policy Policy) (*Response, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var resp *Response
	attempt := 0
	err := retry.Do(
		func() error {
			n := attempt
			attempt++
			r, err := e.attempt(ctx, build, policy, n)
			if err != nil {
				return err
			}
			if policy.Retryable(r.Status) {
				return &retryStatusError{Status: r.Status, RetryAfter: r.Header.Get("Retry-After")}
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(policy.MaxAttempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryableError),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			var statusErr *retryStatusError
			if errors.As(err, &statusErr) {
				return policy.Delay(int(n), statusErr.RetryAfter)
			}
			return policy.Delay(int(n), "")
		}),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Debug("retrying backend call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		var statusErr *retryStatusError
		if errors.As(err, &statusErr) {
			return nil, &RetryExhaustedError{Status: statusErr.Status, Attempts: policy.MaxAttempts}
		}
		return nil, err
	}
	return resp, nil
}

func retryableError(err error) bool {
	var statusErr *retryStatusError
	var connErr *ConnectionError
	var timeoutErr *TimeoutError
	return errors.As(err, &statusErr) || errors.As(err, &connErr) || errors.As(err, &timeoutErr)
}

// attempt runs a single attempt under its own deadline and reads the body
// before the deadline is released.
func (e *Executor) attempt(ctx context.Context, build RequestBuilder, policy Policy, n int) (*Response, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if policy.PerAttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, policy.PerAttemptTimeout)
	}
	defer cancel()

	req, err := build(attemptCtx)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpResp, err := e.client.Do(req)
	if err != nil {
		return nil, classify(ctx, attemptCtx, n, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classify(ctx, attemptCtx, n, err)
	}
	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header.Clone(), Body: body}, nil
}

// classify sorts a transport error into the taxonomy: caller cancellation
// propagates as-is, the attempt deadline counts as a timeout, and anything
// else is a connection failure.
func classify(ctx, attemptCtx context.Context, n int, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case attemptCtx.Err() == context.DeadlineExceeded:
		return &TimeoutError{Attempt: n + 1, Err: err}
	default:
		return &ConnectionError{Attempt: n + 1, Err: err}
	}
}
