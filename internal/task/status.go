package task

import (
	"encoding/json"
	"strings"
)

// Handle is the opaque identifier of a submitted remote operation. It is
// returned by the submission call and owned by the caller for the duration
// of the poll.
type Handle string

// Status is the closed classification of a raw remote status payload.
type Status int

const (
	StatusUnknown Status = iota
	StatusEnqueued
	StatusProcessing
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEnqueued:
		return "enqueued"
	case StatusProcessing:
		return "processing"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the operation will not transition further.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// FailureCause carries the error description the remote API attached to a
// failed operation.
type FailureCause struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
}

// Payload is the raw status payload returned by one poll. Raw is opaque to
// the poller and handed back unchanged in the terminal Result.
type Payload struct {
	Status string
	Raw    json.RawMessage
	Cause  *FailureCause
}

// Status vocabularies. The remote API's wording is matched case-insensitively
// against these closed sets; anything outside them classifies as
// StatusUnknown so a vocabulary drift surfaces as a protocol error instead
// of an endless loop.
var (
	enqueuedStatuses   = []string{"enqueued", "queued", "pending"}
	processingStatuses = []string{"processing", "running", "started"}
	succeededStatuses  = []string{"succeeded", "success", "done"}
	failedStatuses     = []string{"failed", "error", "canceled"}
)

func matches(raw string, vocab []string) bool {
	for _, v := range vocab {
		if strings.EqualFold(raw, v) {
			return true
		}
	}
	return false
}

// Classify maps a raw status string onto the closed Status enum using the
// default vocabulary.
func Classify(raw string) Status {
	switch {
	case matches(raw, succeededStatuses):
		return StatusSucceeded
	case matches(raw, failedStatuses):
		return StatusFailed
	case matches(raw, enqueuedStatuses):
		return StatusEnqueued
	case matches(raw, processingStatuses):
		return StatusProcessing
	default:
		return StatusUnknown
	}
}
