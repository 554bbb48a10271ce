package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func getRequest(url string) RequestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestExecutorDo(t *testing.T) {
	t.Run("retries retryable status until success", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"ok":true}`)
		}))
		defer server.Close()

		policy := Policy{
			MaxAttempts:       3,
			PerAttemptTimeout: 5 * time.Second,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			RetryableStatus:   map[int]bool{503: true},
		}
		resp, err := NewExecutor(nil).Do(context.Background(), getRequest(server.URL), policy)
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if resp.Status != http.StatusOK {
			t.Errorf("Status = %d, want 200", resp.Status)
		}
		if got := atomic.LoadInt32(&calls); got != 3 {
			t.Errorf("attempts = %d, want 3", got)
		}
	})

	t.Run("exhaustion fails with RetryExhausted", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		policy := Policy{
			MaxAttempts:       2,
			PerAttemptTimeout: 5 * time.Second,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			RetryableStatus:   map[int]bool{503: true},
		}
		resp, err := NewExecutor(nil).Do(context.Background(), getRequest(server.URL), policy)
		if resp != nil {
			t.Errorf("Do() response = %+v, want nil", resp)
		}
		var exhausted *RetryExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("error = %v, want RetryExhaustedError", err)
		}
		if exhausted.Status != http.StatusServiceUnavailable || exhausted.Attempts != 2 {
			t.Errorf("exhausted = %+v", exhausted)
		}
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("attempts = %d, want exactly 2", got)
		}
	})

	t.Run("non-retryable status returned unmodified", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"no such form"}`)
		}))
		defer server.Close()

		policy := Policy{
			MaxAttempts:       3,
			PerAttemptTimeout: 5 * time.Second,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			RetryableStatus:   map[int]bool{503: true},
		}
		resp, err := NewExecutor(nil).Do(context.Background(), getRequest(server.URL), policy)
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if resp.Status != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", resp.Status)
		}
		if string(resp.Body) != `{"error":"no such form"}` {
			t.Errorf("Body = %s", resp.Body)
		}
	})

	t.Run("connection failure surfaces as ConnectionError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		policy := Policy{
			MaxAttempts:       2,
			PerAttemptTimeout: time.Second,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			RetryableStatus:   map[int]bool{},
		}
		_, err := NewExecutor(nil).Do(context.Background(), getRequest(url), policy)
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("error = %v, want ConnectionError", err)
		}
	})

	t.Run("per-attempt deadline counts as timeout", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		policy := Policy{
			MaxAttempts:       2,
			PerAttemptTimeout: 50 * time.Millisecond,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			RetryableStatus:   map[int]bool{},
		}
		_, err := NewExecutor(nil).Do(context.Background(), getRequest(server.URL), policy)
		var timeoutErr *TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("error = %v, want TimeoutError", err)
		}
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("attempts = %d, want 2 (timeouts retry)", got)
		}
	})

	t.Run("caller cancellation propagates unretried", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		policy := Policy{
			MaxAttempts:       3,
			PerAttemptTimeout: 5 * time.Second,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			RetryableStatus:   map[int]bool{},
		}
		_, err := NewExecutor(nil).Do(ctx, getRequest(server.URL), policy)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("server hint overrides backoff", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		policy := Policy{
			MaxAttempts:       2,
			PerAttemptTimeout: 5 * time.Second,
			BaseDelay:         time.Millisecond,
			MaxDelay:          2 * time.Millisecond,
			RetryableStatus:   map[int]bool{429: true},
		}
		start := time.Now()
		resp, err := NewExecutor(nil).Do(context.Background(), getRequest(server.URL), policy)
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if resp.Status != http.StatusOK {
			t.Errorf("Status = %d, want 200", resp.Status)
		}
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("elapsed = %v, want >= 1s from the server hint", elapsed)
		}
	})
}
