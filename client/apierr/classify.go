package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Outcome is a failed attempt as seen by [Classify]. Either Err is set
// (no response was received) or StatusCode, Header and Body describe a
// non-2xx response.
type Outcome struct {
	Path       string
	Err        error
	StatusCode int
	Header     http.Header
	Body       []byte

	// Now anchors HTTP-date Retry-After values. Zero means time.Now().
	Now time.Time
}

// uploadMarkers identify endpoints that accept file payloads. A 400 on
// one of them is reported as KindFileUpload.
var uploadMarkers = []string{
	"/upload",
	"/files",
	"/audio-to-text",
	"create-by-file",
	"create_by_file",
}

// Classify maps a failed attempt onto the error taxonomy. It has no
// side effects.
func Classify(o Outcome) *Error {
	if o.Err != nil {
		return classifyTransport(o.Err)
	}

	e := &Error{
		Kind:       KindAPI,
		StatusCode: o.StatusCode,
		Body:       string(o.Body),
		RequestID:  RequestID(o.Header),
		Message:    message(o.StatusCode, o.Header, o.Body),
	}

	switch o.StatusCode {
	case http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		now := o.Now
		if now.IsZero() {
			now = time.Now()
		}
		e.RetryAfter = ParseRetryAfter(o.Header.Get("Retry-After"), now)
	case http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	case http.StatusBadRequest:
		if isUploadPath(o.Path) {
			e.Kind = KindFileUpload
		}
	}

	return e
}

func classifyTransport(err error) *Error {
	var ne net.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("request timed out: %v", err),
			Err:     err,
		}
	}

	return &Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("network error: %v", err),
		Err:     err,
	}
}

func isUploadPath(path string) bool {
	p := strings.ToLower(path)
	for _, m := range uploadMarkers {
		if strings.Contains(p, m) {
			return true
		}
	}
	return false
}

// message prefers a JSON "message" field, then a non-empty string body,
// then a generic status line.
func message(status int, header http.Header, body []byte) string {
	fallback := fmt.Sprintf("request failed with status code %d", status)
	if len(strings.TrimSpace(string(body))) == 0 {
		return fallback
	}

	if isJSON(header) || json.Valid(body) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			switch t := v.(type) {
			case map[string]any:
				if msg, ok := t["message"].(string); ok && msg != "" {
					return msg
				}
				return fallback
			case string:
				if t != "" {
					return t
				}
				return fallback
			default:
				return fallback
			}
		}
	}

	return string(body)
}

func isJSON(header http.Header) bool {
	return strings.Contains(strings.ToLower(header.Get("Content-Type")), "json")
}

// RequestID returns the server correlation id, if any.
func RequestID(header http.Header) string {
	if header == nil {
		return ""
	}
	if id := header.Get("X-Request-ID"); id != "" {
		return id
	}
	return header.Get("X-RequestId")
}

// ParseRetryAfter reads a Retry-After value in either delta-seconds or
// HTTP-date form. Dates in the past clamp to zero. Zero, negative and
// unparseable values yield zero, meaning no hint.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	t, err := http.ParseTime(v)
	if err != nil {
		return 0
	}

	d := t.Sub(now)
	if d <= 0 {
		return 0
	}

	// HTTP dates have one-second resolution.
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}
