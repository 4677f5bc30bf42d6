package sse

import (
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.New("sse: stream closed")

// Stream is a decoded event stream bound to a live response body,
// together with the response metadata.
type Stream struct {
	StatusCode int
	Header     http.Header
	RequestID  string

	body    io.ReadCloser
	dec     *Decoder
	release func()

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps body. release, if non-nil, runs once after the body
// is closed and frees whatever scope produced the response.
func NewStream(body io.ReadCloser, statusCode int, header http.Header, requestID string, release func()) *Stream {
	return &Stream{
		StatusCode: statusCode,
		Header:     header,
		RequestID:  requestID,
		body:       body,
		dec:        NewDecoder(body),
		release:    release,
	}
}

// Next returns the next event. The stream closes itself on io.EOF or
// any read error.
func (s *Stream) Next() (Event, error) {
	if s.closed.Load() {
		return Event{}, ErrStreamClosed
	}

	ev, err := s.dec.Next()
	if err != nil {
		s.Close()
		return Event{}, err
	}

	return ev, nil
}

// All yields events until the body ends. Ending the range loop early
// closes the stream without error. A read failure is yielded once as
// the final element.
func (s *Stream) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer s.Close()

		for {
			ev, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Text consumes the stream and concatenates the text of every event.
func (s *Stream) Text() (string, error) {
	return AccumulateText(s.All())
}

// Body exposes the underlying byte source. Reading it directly bypasses
// the decoder.
func (s *Stream) Body() io.ReadCloser {
	return s.body
}

// Close releases the connection. It is safe to call more than once and
// from another goroutine.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.body.Close()
		if s.release != nil {
			s.release()
		}
	})

	return s.closeErr
}

// AccumulateText concatenates [TextOf] across events in order.
func AccumulateText(events iter.Seq2[Event, error]) (string, error) {
	var b strings.Builder
	for ev, err := range events {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(TextOf(ev))
	}

	return b.String(), nil
}

// TextOf extracts a best-effort text fragment: string data as is, or the
// "answer", "text" or "delta" field of object data.
func TextOf(ev Event) string {
	switch d := ev.Data.(type) {
	case string:
		return d
	case map[string]any:
		for _, key := range []string{"answer", "text", "delta"} {
			if v, ok := d[key]; ok {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
	}

	return ""
}
