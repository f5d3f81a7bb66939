// Package sse decodes text/event-stream bodies as sent by OpenAI-compatible
// chat completion endpoints.
package sse

import (
	"bufio"
	"io"
	"iter"
	"strconv"
	"strings"
)

// DoneMarker is the payload of the final event of a completion stream.
const DoneMarker = "[DONE]"

// A completion chunk can exceed bufio's 64KB default line size.
const maxLineSize = 1 << 20

// Event is one dispatched event. Data lines are joined with "\n".
type Event struct {
	Event string
	Data  string
	ID    string
	// Retry is the reconnection delay in milliseconds, 0 when not sent.
	Retry int
}

// IsDone reports the end-of-stream marker.
func (e *Event) IsDone() bool {
	return strings.TrimSpace(e.Data) == DoneMarker
}

// Reader decodes events from a response body. It is not safe for
// concurrent use.
type Reader struct {
	sc   *bufio.Scanner
	body io.ReadCloser
}

func NewReader(body io.ReadCloser) *Reader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Reader{sc: sc, body: body}
}

// Next returns the next event carrying data, or io.EOF at the end of the
// body. Comment lines and blocks without data are skipped; a final block
// not followed by a blank line is still returned.
func (r *Reader) Next() (*Event, error) {
	var (
		ev    Event
		lines []string
	)
	for r.sc.Scan() {
		line := strings.TrimSuffix(r.sc.Text(), "\r")
		if line == "" {
			if lines != nil {
				ev.Data = strings.Join(lines, "\n")
				return &ev, nil
			}
			continue
		}
		name, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch name {
		case "":
			// comment
		case "data":
			lines = append(lines, value)
		case "event":
			ev.Event = value
		case "id":
			ev.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				ev.Retry = ms
			}
		}
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	if lines != nil {
		ev.Data = strings.Join(lines, "\n")
		return &ev, nil
	}
	return nil, io.EOF
}

// Events yields events until the body ends or a read fails. A read failure
// is yielded once with a nil event; io.EOF is not yielded.
func (r *Reader) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			ev, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the body.
func (r *Reader) Close() error {
	return r.body.Close()
}
