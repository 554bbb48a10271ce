package backend

import (
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	tests := []struct {
		name string
		n    int
		hint string
		want time.Duration
	}{
		{"first retry", 0, "", time.Second},
		{"second retry", 1, "", 2 * time.Second},
		{"third retry", 2, "", 4 * time.Second},
		{"capped at max", 5, "", 10 * time.Second},
		{"huge attempt stays capped", 40, "", 10 * time.Second},
		{"server hint wins", 0, "3", 3 * time.Second},
		{"hint beats the cap", 0, "120", 120 * time.Second},
		{"hint of zero ignored", 3, "0", 8 * time.Second},
		{"hint at upper bound ignored", 0, "3600", time.Second},
		{"negative hint ignored", 0, "-2", time.Second},
		{"fractional hint ignored", 0, "1.5", time.Second},
		{"non-numeric hint ignored", 0, "soon", time.Second},
		{"padded hint honored", 0, " 2 ", 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Delay(tt.n, tt.hint); got != tt.want {
				t.Errorf("Delay(%d, %q) = %v, want %v", tt.n, tt.hint, got, tt.want)
			}
		})
	}
}

func TestPolicyRetryable(t *testing.T) {
	p := MetadataPolicy()
	if !p.Retryable(429) || !p.Retryable(503) {
		t.Error("metadata policy must retry 429 and 503")
	}
	if p.Retryable(500) || p.Retryable(404) || p.Retryable(200) {
		t.Error("metadata policy retries too much")
	}
}
