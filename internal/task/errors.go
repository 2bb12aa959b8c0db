package task

import (
	"fmt"
	"time"
)

// TransportError reports that the status-fetch call itself failed
// (network, auth, missing task). It is surfaced immediately and never
// retried by the poller: a persistent transport failure is not recoverable
// by waiting.
type TransportError struct {
	Handle Handle
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("task %s: status fetch failed: %v", e.Handle, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the wait budget was exhausted while the
// operation was still non-terminal.
type TimeoutError struct {
	Handle     Handle
	Waited     time.Duration
	LastStatus string
	Polls      int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s: not terminal after %s (%d polls, last status %q)",
		e.Handle, e.Waited, e.Polls, e.LastStatus)
}

// ProtocolError reports a payload the poller cannot interpret: an
// unrecognized status string, or one that satisfies both the success and
// failure predicates. It indicates a remote API contract violation and
// terminates the poll loop rather than looping forever.
type ProtocolError struct {
	Handle    Handle
	RawStatus string
	Reason    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("task %s: %s (status %q)", e.Handle, e.Reason, e.RawStatus)
}
