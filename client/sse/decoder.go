// Package sse decodes Server-Sent-Events style response bodies into
// discrete events.
//
// # Wire format
//
// Lines are separated by "\n" (a trailing "\r" is dropped). A blank line
// ends an event block:
//
//	event: message
//	data: {"answer":"hi"}
//
// "data:" lines repeat and are joined with "\n". Lines starting with ":"
// are comments. Unknown fields are ignored. A block still pending when
// the body ends is emitted as a final event.
//
// # Consuming
//
// [Stream.All] yields events for a range loop. Breaking out of the loop
// closes the body:
//
//	for ev, err := range stream.All() {
//		if err != nil {
//			return err
//		}
//		fmt.Print(sse.TextOf(ev))
//	}
package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Event is one decoded event block.
type Event struct {
	// Name is the value of the last "event:" line, if any.
	Name string
	// Data is Raw parsed as JSON, Raw itself when it is not JSON, or nil
	// when Raw is empty.
	Data any
	// Raw is the block's data lines joined with "\n".
	Raw string
}

// Decoder reads events from r. It buffers partial lines between reads;
// splitting only on the '\n' byte keeps multi-byte UTF-8 sequences intact.
type Decoder struct {
	r *bufio.Reader

	name    string
	data    []string
	pending bool
	done    bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next event, or io.EOF once the body ends and every
// pending block has been flushed.
func (d *Decoder) Next() (Event, error) {
	for !d.done {
		line, err := d.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}
		if err != nil {
			d.done = true
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			if d.pending {
				return d.flush(), nil
			}
			continue
		}

		d.parseLine(line)
	}

	if d.pending {
		return d.flush(), nil
	}

	return Event{}, io.EOF
}

func (d *Decoder) parseLine(line string) {
	switch {
	case strings.HasPrefix(line, ":"):
	case strings.HasPrefix(line, "event:"):
		d.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		d.pending = true
	case strings.HasPrefix(line, "data:"):
		v := strings.TrimPrefix(line, "data:")
		v = strings.TrimPrefix(v, " ")
		d.data = append(d.data, v)
		d.pending = true
	}
}

func (d *Decoder) flush() Event {
	raw := strings.Join(d.data, "\n")
	ev := Event{
		Name: d.name,
		Raw:  raw,
		Data: parseData(raw),
	}

	d.name = ""
	d.data = d.data[:0]
	d.pending = false

	return ev
}

func parseData(raw string) any {
	if raw == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	return v
}
