package apierr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/adamwoolhether/apiclient/client/apierr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func jsonHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

func TestClassify_StatusKinds(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		path    string
		expKind apierr.Kind
		expErr  error
	}{
		{name: "401", status: http.StatusUnauthorized, path: "/chat-messages", expKind: apierr.KindAuthentication, expErr: apierr.ErrAuthentication},
		{name: "429", status: http.StatusTooManyRequests, path: "/chat-messages", expKind: apierr.KindRateLimit, expErr: apierr.ErrRateLimit},
		{name: "422", status: http.StatusUnprocessableEntity, path: "/chat-messages", expKind: apierr.KindValidation, expErr: apierr.ErrValidation},
		{name: "400 upload", status: http.StatusBadRequest, path: "/files/upload", expKind: apierr.KindFileUpload, expErr: apierr.ErrFileUpload},
		{name: "400 audio", status: http.StatusBadRequest, path: "/audio-to-text", expKind: apierr.KindFileUpload, expErr: apierr.ErrFileUpload},
		{name: "400 create by file", status: http.StatusBadRequest, path: "/datasets/abc/document/create-by-file", expKind: apierr.KindFileUpload, expErr: apierr.ErrFileUpload},
		{name: "400 plain", status: http.StatusBadRequest, path: "/chat-messages", expKind: apierr.KindAPI, expErr: apierr.ErrAPI},
		{name: "404", status: http.StatusNotFound, path: "/conversations", expKind: apierr.KindAPI, expErr: apierr.ErrAPI},
		{name: "500", status: http.StatusInternalServerError, path: "/files/upload", expKind: apierr.KindAPI, expErr: apierr.ErrAPI},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := apierr.Classify(apierr.Outcome{
				Path:       tc.path,
				StatusCode: tc.status,
				Header:     jsonHeader(),
				Body:       []byte(`{"code":"x"}`),
			})

			if e.Kind != tc.expKind {
				t.Errorf("exp kind %s, got %s", tc.expKind, e.Kind)
			}
			if e.StatusCode != tc.status {
				t.Errorf("exp status %d, got %d", tc.status, e.StatusCode)
			}
			if !errors.Is(e, tc.expErr) {
				t.Errorf("exp errors.Is(%v), got %v", tc.expErr, e)
			}
		})
	}
}

func TestClassify_Transport(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		expKind apierr.Kind
	}{
		{name: "canceled", err: fmt.Errorf("do: %w", context.Canceled), expKind: apierr.KindTimeout},
		{name: "deadline", err: fmt.Errorf("do: %w", context.DeadlineExceeded), expKind: apierr.KindTimeout},
		{name: "reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), expKind: apierr.KindNetwork},
		{name: "dns", err: errors.New("lookup api.example.com: no such host"), expKind: apierr.KindNetwork},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := apierr.Classify(apierr.Outcome{Path: "/x", Err: tc.err})

			if e.Kind != tc.expKind {
				t.Errorf("exp kind %s, got %s", tc.expKind, e.Kind)
			}
			if e.StatusCode != 0 {
				t.Errorf("transport errors must not carry a status, got %d", e.StatusCode)
			}
			if !errors.Is(e, tc.err) {
				t.Error("exp cause to be wrapped")
			}
			if !e.Retryable() {
				t.Error("exp transport error to be retryable")
			}
		})
	}
}

func TestClassify_Message(t *testing.T) {
	textHeader := make(http.Header)
	textHeader.Set("Content-Type", "text/plain")

	testCases := []struct {
		name   string
		header http.Header
		body   string
		exp    string
	}{
		{name: "json message", header: jsonHeader(), body: `{"message":"bad key"}`, exp: "bad key"},
		{name: "json empty message", header: jsonHeader(), body: `{"message":""}`, exp: "request failed with status code 403"},
		{name: "json no message", header: jsonHeader(), body: `{"code":"denied"}`, exp: "request failed with status code 403"},
		{name: "json string", header: jsonHeader(), body: `"denied"`, exp: "denied"},
		{name: "plain text", header: textHeader, body: "forbidden here", exp: "forbidden here"},
		{name: "sniffed json without header", header: textHeader, body: `{"message":"sniffed"}`, exp: "sniffed"},
		{name: "empty", header: textHeader, body: "", exp: "request failed with status code 403"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := apierr.Classify(apierr.Outcome{
				Path:       "/x",
				StatusCode: http.StatusForbidden,
				Header:     tc.header,
				Body:       []byte(tc.body),
			})

			if e.Message != tc.exp {
				t.Errorf("exp message %q, got %q", tc.exp, e.Message)
			}
			if e.Body != tc.body {
				t.Errorf("exp raw body %q, got %q", tc.body, e.Body)
			}
		})
	}
}

func TestClassify_RateLimitAndRequestID(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	h := jsonHeader()
	h.Set("Retry-After", "2")
	h.Set("X-Request-ID", "req-123")

	got := apierr.Classify(apierr.Outcome{
		Path:       "/chat-messages",
		StatusCode: http.StatusTooManyRequests,
		Header:     h,
		Body:       []byte(`{"message":"slow down"}`),
		Now:        now,
	})

	exp := &apierr.Error{
		Kind:       apierr.KindRateLimit,
		Message:    "slow down",
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"slow down"}`,
		RequestID:  "req-123",
		RetryAfter: 2 * time.Second,
	}

	if diff := cmp.Diff(exp, got, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("classified error mismatch (-exp +got):\n%s", diff)
	}
}

func TestRequestID_Fallback(t *testing.T) {
	h := make(http.Header)
	h.Set("X-RequestId", "legacy-1")

	if id := apierr.RequestID(h); id != "legacy-1" {
		t.Errorf("exp legacy-1, got %q", id)
	}
	if id := apierr.RequestID(nil); id != "" {
		t.Errorf("exp empty id for nil header, got %q", id)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	testCases := []struct {
		name  string
		value string
		exp   time.Duration
	}{
		{name: "seconds", value: "2", exp: 2 * time.Second},
		{name: "padded", value: " 10 ", exp: 10 * time.Second},
		{name: "zero", value: "0", exp: 0},
		{name: "negative", value: "-3", exp: 0},
		{name: "empty", value: "", exp: 0},
		{name: "garbage", value: "soon", exp: 0},
		{name: "future date", value: now.Add(30 * time.Second).Format(http.TimeFormat), exp: 30 * time.Second},
		{name: "past date", value: now.Add(-time.Minute).Format(http.TimeFormat), exp: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := apierr.ParseRetryAfter(tc.value, now); got != tc.exp {
				t.Errorf("exp %v, got %v", tc.exp, got)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("calling: %w", apierr.NewValidation("bad query", nil))

	k, ok := apierr.KindOf(wrapped)
	if !ok || k != apierr.KindValidation {
		t.Errorf("exp validation kind, got %v %v", k, ok)
	}
	if apierr.IsRetryable(wrapped) {
		t.Error("validation errors must not be retryable")
	}
	if _, ok := apierr.KindOf(errors.New("plain")); ok {
		t.Error("exp unclassified error to report false")
	}
}
