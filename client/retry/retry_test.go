package retry_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/adamwoolhether/apiclient/client/apierr"
	"github.com/adamwoolhether/apiclient/client/retry"
)

// fixedSource always returns the same jitter, clamped into range.
type fixedSource int64

func (f fixedSource) Int64N(n int64) int64 {
	if int64(f) >= n {
		return n - 1
	}
	return int64(f)
}

var allKinds = []apierr.Kind{
	apierr.KindAPI,
	apierr.KindAuthentication,
	apierr.KindRateLimit,
	apierr.KindValidation,
	apierr.KindFileUpload,
	apierr.KindNetwork,
	apierr.KindTimeout,
}

func TestShouldRetry_Budget(t *testing.T) {
	for _, k := range allKinds {
		err := &apierr.Error{Kind: k}
		for _, max := range []int{0, 1, 3} {
			for attempt := max; attempt < max+3; attempt++ {
				if retry.ShouldRetry(err, attempt, max) {
					t.Errorf("kind %s: exp no retry at attempt %d with max %d", k, attempt, max)
				}
			}
		}
	}
}

func TestShouldRetry_Kinds(t *testing.T) {
	retryable := map[apierr.Kind]bool{
		apierr.KindNetwork:   true,
		apierr.KindTimeout:   true,
		apierr.KindRateLimit: true,
	}

	for _, k := range allKinds {
		t.Run(k.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &apierr.Error{Kind: k})
			for attempt := range 3 {
				got := retry.ShouldRetry(err, attempt, 3)
				if got != retryable[k] {
					t.Errorf("attempt %d: exp %v, got %v", attempt, retryable[k], got)
				}
			}
		})
	}
}

func TestShouldRetry_Unclassified(t *testing.T) {
	if retry.ShouldRetry(errors.New("boom"), 0, 3) {
		t.Error("exp unclassified errors to be terminal")
	}
}

func TestDelay_RetryAfterWins(t *testing.T) {
	for attempt := 1; attempt <= 5; attempt++ {
		for _, base := range []time.Duration{0, 10 * time.Millisecond, time.Second} {
			got := retry.Delay(attempt, base, 2*time.Second, fixedSource(999))
			if got != 2000*time.Millisecond {
				t.Errorf("attempt %d base %v: exp 2s, got %v", attempt, base, got)
			}
		}
	}
}

func TestDelay_Exponential(t *testing.T) {
	base := time.Second

	testCases := []struct {
		attempt int
		jitter  int64
		exp     time.Duration
	}{
		{attempt: 1, jitter: 0, exp: time.Second},
		{attempt: 2, jitter: 0, exp: 2 * time.Second},
		{attempt: 3, jitter: 0, exp: 4 * time.Second},
		{attempt: 3, jitter: int64(250 * time.Millisecond), exp: 4*time.Second + 250*time.Millisecond},
		{attempt: 0, jitter: 0, exp: time.Second},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("attempt_%d_jitter_%d", tc.attempt, tc.jitter), func(t *testing.T) {
			got := retry.Delay(tc.attempt, base, 0, fixedSource(tc.jitter))
			if got != tc.exp {
				t.Errorf("exp %v, got %v", tc.exp, got)
			}
		})
	}
}

func TestDelay_JitterBounds(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))
	base := 100 * time.Millisecond

	for attempt := 1; attempt <= 4; attempt++ {
		floor := base << (attempt - 1)
		for range 200 {
			d := retry.Delay(attempt, base, 0, src)
			if d < floor || d >= floor+base {
				t.Fatalf("attempt %d: delay %v outside [%v, %v)", attempt, d, floor, floor+base)
			}
		}
	}
}

func TestPolicy(t *testing.T) {
	p := retry.Policy{MaxRetries: 2, BaseDelay: 50 * time.Millisecond, Source: fixedSource(0)}
	err := &apierr.Error{Kind: apierr.KindNetwork}

	if !p.ShouldRetry(err, 1) {
		t.Error("exp retry at attempt 1")
	}
	if p.ShouldRetry(err, 2) {
		t.Error("exp no retry at attempt 2")
	}
	if got := p.Delay(2, 0); got != 100*time.Millisecond {
		t.Errorf("exp 100ms, got %v", got)
	}
}
