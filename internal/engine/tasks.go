package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/utafrali/search-provisioner/internal/task"
)

// TaskRef is the engine's acknowledgement of an enqueued asynchronous
// operation: the task handle plus the enqueue metadata.
type TaskRef struct {
	TaskUID   int64  `json:"taskUid"`
	IndexUID  string `json:"indexUid,omitempty"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	EnqueuedAt string `json:"enqueuedAt,omitempty"`
}

// Handle returns the poller handle for this task.
func (r TaskRef) Handle() task.Handle {
	return task.Handle(strconv.FormatInt(r.TaskUID, 10))
}

// TaskError is the structured error the engine attaches to a failed task.
type TaskError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
	Link    string `json:"link,omitempty"`
}

// Task is the full status record of an asynchronous engine task.
type Task struct {
	UID        int64           `json:"uid"`
	IndexUID   string          `json:"indexUid,omitempty"`
	Status     string          `json:"status"`
	Type       string          `json:"type"`
	Error      *TaskError      `json:"error,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	Duration   string          `json:"duration,omitempty"`
	EnqueuedAt string          `json:"enqueuedAt,omitempty"`
	StartedAt  string          `json:"startedAt,omitempty"`
	FinishedAt string          `json:"finishedAt,omitempty"`
}

// GetTask fetches the current status of a task by its handle.
func (c *Client) GetTask(ctx context.Context, h task.Handle) (*Task, json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, "/tasks/"+string(h), nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, c.decodeError(resp, "get task "+string(h))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("engine get task %s: decode response: %w", h, err)
	}

	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, nil, fmt.Errorf("engine get task %s: decode task: %w", h, err)
	}
	return &t, raw, nil
}

// TaskFetcher adapts GetTask to the poller's Fetcher contract. A missing
// task (404) surfaces as a fetch error: the engine issued the handle, so
// its absence is a remote contract violation that waiting cannot fix.
func (c *Client) TaskFetcher() task.Fetcher {
	return func(ctx context.Context, h task.Handle) (task.Payload, error) {
		t, raw, err := c.GetTask(ctx, h)
		if err != nil {
			return task.Payload{}, err
		}

		p := task.Payload{Status: t.Status, Raw: raw}
		if t.Error != nil {
			p.Cause = &task.FailureCause{
				Message: t.Error.Message,
				Code:    t.Error.Code,
				Type:    t.Error.Type,
			}
		}
		return p, nil
	}
}
