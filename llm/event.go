package llm

// StreamEvent is one element of a completion stream: a partial text fragment,
// the done marker, or a failure. A stream carries exactly one terminal event
// and nothing after it.
type StreamEvent struct {
	RequestID string
	Text      string
	Done      bool
	Err       error
}

// Partial creates a fragment event.
func Partial(requestID, text string) StreamEvent {
	return StreamEvent{RequestID: requestID, Text: text}
}

// Done creates the successful terminal event.
func Done(requestID string) StreamEvent {
	return StreamEvent{RequestID: requestID, Done: true}
}

// Failed creates the error terminal event.
func Failed(requestID string, err error) StreamEvent {
	return StreamEvent{RequestID: requestID, Err: err}
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool { return e.Done || e.Err != nil }
