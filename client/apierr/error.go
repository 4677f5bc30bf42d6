// Package apierr classifies failed calls into a closed set of error kinds.
//
// Every terminal failure surfaced by the client is an [*Error]. Callers
// discriminate on [Error.Kind] or with [errors.Is] against the sentinels:
//
//	resp, err := c.Request(ctx, spec)
//	switch {
//	case errors.Is(err, apierr.ErrRateLimit):
//		// back off, see apierr.Error.RetryAfter
//	case errors.Is(err, apierr.ErrAuthentication):
//		// rotate the key
//	}
package apierr

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the category of a failed call.
type Kind int

const (
	KindAPI Kind = iota
	KindAuthentication
	KindRateLimit
	KindValidation
	KindFileUpload
	KindNetwork
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindValidation:
		return "validation"
	case KindFileUpload:
		return "file_upload"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	default:
		return "api"
	}
}

var (
	ErrAPI            = errors.New("api error")
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrValidation     = errors.New("validation failed")
	ErrFileUpload     = errors.New("file upload failed")
	ErrNetwork        = errors.New("network failure")
	ErrTimeout        = errors.New("request timeout")
)

var sentinels = map[Kind]error{
	KindAPI:            ErrAPI,
	KindAuthentication: ErrAuthentication,
	KindRateLimit:      ErrRateLimit,
	KindValidation:     ErrValidation,
	KindFileUpload:     ErrFileUpload,
	KindNetwork:        ErrNetwork,
	KindTimeout:        ErrTimeout,
}

// Error is the classified outcome of a failed call.
//
// StatusCode is zero for failures that never received a response
// (network, timeout, local validation).
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Body       string
	RequestID  string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %d: %s", e.Kind, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Retryable reports whether the kind is transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit:
		return true
	default:
		return false
	}
}

// NewValidation builds a local pre-flight rejection. It never carries
// a status code.
func NewValidation(msg string, cause error) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: msg,
		Err:     cause,
	}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or false if err was not classified.
func KindOf(err error) (Kind, bool) {
	ae, ok := As(err)
	if !ok {
		return 0, false
	}
	return ae.Kind, true
}

// IsRetryable reports whether err is a classified transient failure.
func IsRetryable(err error) bool {
	ae, ok := As(err)
	return ok && ae.Retryable()
}
