// Package retry decides whether a failed attempt is retried and how
// long to wait before the next one.
//
// The functions are pure: randomness comes from an injected [Source],
// so delays are reproducible in tests.
package retry

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/adamwoolhether/apiclient/client/apierr"
)

// Source draws jitter. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// Int64N returns a value in [0, n).
	Int64N(n int64) int64
}

type globalSource struct{}

func (globalSource) Int64N(n int64) int64 { return rand.Int64N(n) }

// DefaultSource returns a Source backed by the concurrency-safe
// top-level math/rand/v2 generator.
func DefaultSource() Source {
	return globalSource{}
}

// ShouldRetry reports whether err warrants another attempt. attempt is
// the zero-based index of the retry being considered, so a call makes
// at most 1+maxRetries attempts.
func ShouldRetry(err error, attempt, maxRetries int) bool {
	if attempt >= maxRetries {
		return false
	}

	var ae *apierr.Error
	if !errors.As(err, &ae) {
		return false
	}

	return ae.Retryable()
}

// Delay returns the wait before retry number attempt (1-based). A
// positive retryAfter is returned exactly. Otherwise the delay is
// base*2^(attempt-1) plus jitter in [0, base).
func Delay(attempt int, base, retryAfter time.Duration, src Source) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if src == nil {
		src = DefaultSource()
	}

	d := base
	for i := 1; i < attempt; i++ {
		if d > maxDelay/2 {
			d = maxDelay
			break
		}
		d *= 2
	}

	return d + time.Duration(src.Int64N(int64(base)))
}

// maxDelay stops doubling before time.Duration overflows.
const maxDelay = time.Duration(1<<62 - 1)

// Policy bundles the retry settings of one logical call.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Source     Source
}

// ShouldRetry applies [ShouldRetry] with the policy's budget.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	return ShouldRetry(err, attempt, p.MaxRetries)
}

// Delay applies [Delay] with the policy's base delay and source.
func (p Policy) Delay(attempt int, retryAfter time.Duration) time.Duration {
	return Delay(attempt, p.BaseDelay, retryAfter, p.Source)
}
