package backend

import (
	"strconv"
	"strings"
	"time"
)

// Policy controls retry behavior for one logical call. Policies are built
// per call site and never shared or mutated; each site picks the retryable
// set and deadline that fit its traffic, so one executor serves both short
// metadata fetches and multi-minute generation calls.
type Policy struct {
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RetryableStatus   map[int]bool
}

// Retryable reports whether a status code drives an automatic retry.
func (p Policy) Retryable(status int) bool {
	return p.RetryableStatus[status]
}

// Delay returns the wait before the attempt after failed attempt n
// (0-based). A server hint wins when it parses to integer seconds in
// (0, 3600); otherwise exponential backoff capped at MaxDelay.
func (p Policy) Delay(n int, retryAfter string) time.Duration {
	if d, ok := retryAfterDelay(retryAfter); ok {
		return d
	}
	if n > 30 {
		// 2^n would overflow; the cap applies long before this anyway.
		return p.MaxDelay
	}
	d := p.BaseDelay << uint(n)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return d
}

// retryAfterDelay parses a Retry-After hint. Only whole seconds strictly
// between 0 and 3600 are honored; anything else falls back to backoff.
func retryAfterDelay(h string) (time.Duration, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs <= 0 || secs >= 3600 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// GenerationPolicy suits multi-minute instruction generation: long
// per-attempt deadline, patient backoff, the full transient-status set.
func GenerationPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		PerAttemptTimeout: 5 * time.Minute,
		BaseDelay:         2 * time.Second,
		MaxDelay:          30 * time.Second,
		RetryableStatus:   map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true},
	}
}

// MetadataPolicy suits short account and quota fetches: tight deadline,
// quick backoff, retrying only throttling and unavailability.
func MetadataPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		PerAttemptTimeout: 10 * time.Second,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		RetryableStatus:   map[int]bool{429: true, 503: true},
	}
}
