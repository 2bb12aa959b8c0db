// Package task drives a remote asynchronous operation to a terminal state
// by repeated status polling, with a bounded wait budget, optional backoff,
// and classified outcomes. The operation is submitted exactly once by the
// caller before the poller is invoked; the poller only reads status.
package task

import (
	"context"
	"log/slog"
	"time"
)

// Fetcher retrieves the current status payload for a handle. It abstracts
// the transport (HTTP, RPC) used to query the remote engine's task-status
// endpoint.
type Fetcher func(ctx context.Context, h Handle) (Payload, error)

// Config is the immutable polling configuration.
type Config struct {
	// Interval is the base time between polls.
	Interval time.Duration

	// MaxWait is the total wait budget. Zero means poll exactly once and
	// time out if the operation is not yet terminal.
	MaxWait time.Duration

	// BackoffMultiplier escalates the interval between successive polls
	// (interval × multiplier^attempt). Values <= 1 disable backoff.
	BackoffMultiplier float64

	// MaxInterval caps the escalated interval. Zero defaults to 10×Interval
	// when backoff is enabled.
	MaxInterval time.Duration

	// IsSuccess and IsFailure override the default status vocabulary.
	// A payload satisfying both is a protocol error, never silently
	// resolved in either direction.
	IsSuccess func(Payload) bool
	IsFailure func(Payload) bool

	// ProgressStatuses extends the vocabulary of non-terminal statuses the
	// poller keeps waiting on (e.g. a health endpoint's "unavailable").
	ProgressStatuses []string
}

// DefaultConfig returns the polling defaults used by the provisioning flows.
func DefaultConfig() Config {
	return Config{
		Interval:          time.Second,
		MaxWait:           2 * time.Minute,
		BackoffMultiplier: 1.5,
		MaxInterval:       10 * time.Second,
	}
}

// Result is the terminal outcome of one polled operation. Exactly one
// Result is produced per handle, or the poll fails with an infrastructure
// error, never both.
type Result struct {
	// OK reports whether the remote operation succeeded. A false OK is a
	// normal, reportable outcome (the operation itself failed), not an
	// infrastructure error: callers branch on it for business outcome.
	OK bool

	// Payload is the raw terminal payload, opaque to the poller.
	Payload Payload

	// Cause is the failure description extracted from the payload when
	// OK is false.
	Cause *FailureCause

	Polls   int
	Elapsed time.Duration
}

// Poller drives a single remote operation to completion. Instances share no
// mutable state; independent operations may be polled concurrently by
// independent pollers without locking.
type Poller struct {
	fetch  Fetcher
	cfg    Config
	logger *slog.Logger

	// injectable for deterministic tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a poller for the given fetcher. Zero-value config fields fall
// back to DefaultConfig values, except MaxWait which is honored as given
// (zero MaxWait means a single poll).
func New(fetch Fetcher, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.BackoffMultiplier > 1 && cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * cfg.Interval
	}
	return &Poller{
		fetch:  fetch,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait blocks until the operation identified by h reaches a terminal state,
// the wait budget is exhausted, or the context is canceled.
//
// It returns a Result for both remote success and remote failure. It
// returns a *TransportError if the fetch itself fails, a *TimeoutError if
// MaxWait elapses while the operation is non-terminal, a *ProtocolError if
// the payload cannot be interpreted, and the context error if the context
// is canceled during a fetch or a wait.
func (p *Poller) Wait(ctx context.Context, h Handle) (*Result, error) {
	start := p.now()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			recordOutcome(outcomeCanceled, p.now().Sub(start).Seconds())
			return nil, err
		}

		payload, err := p.fetch(ctx, h)
		pollsTotal.Inc()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				recordOutcome(outcomeCanceled, p.now().Sub(start).Seconds())
				return nil, ctxErr
			}
			recordOutcome(outcomeTransportError, p.now().Sub(start).Seconds())
			return nil, &TransportError{Handle: h, Err: err}
		}

		status, perr := p.classify(h, payload)
		elapsed := p.now().Sub(start)
		if perr != nil {
			p.logger.Error("task status unintelligible",
				slog.String("task", string(h)),
				slog.String("status", payload.Status),
				slog.Duration("elapsed", elapsed),
			)
			recordOutcome(outcomeProtocolError, elapsed.Seconds())
			return nil, perr
		}

		p.logger.Debug("task status",
			slog.String("task", string(h)),
			slog.String("status", status.String()),
			slog.String("raw_status", payload.Status),
			slog.Int("attempt", attempt+1),
			slog.Duration("elapsed", elapsed),
		)

		switch status {
		case StatusSucceeded:
			recordOutcome(outcomeSucceeded, elapsed.Seconds())
			return &Result{OK: true, Payload: payload, Polls: attempt + 1, Elapsed: elapsed}, nil
		case StatusFailed:
			cause := payload.Cause
			if cause == nil {
				cause = &FailureCause{Message: payload.Status}
			}
			recordOutcome(outcomeFailed, elapsed.Seconds())
			return &Result{OK: false, Payload: payload, Cause: cause, Polls: attempt + 1, Elapsed: elapsed}, nil
		}

		// Enqueued or Processing: wait and poll again, unless the next wait
		// would blow the budget.
		wait := p.nextInterval(attempt)
		if elapsed+wait > p.cfg.MaxWait {
			recordOutcome(outcomeTimeout, elapsed.Seconds())
			return nil, &TimeoutError{
				Handle:     h,
				Waited:     elapsed,
				LastStatus: payload.Status,
				Polls:      attempt + 1,
			}
		}

		if err := p.sleep(ctx, wait); err != nil {
			recordOutcome(outcomeCanceled, p.now().Sub(start).Seconds())
			return nil, err
		}
	}
}

// classify applies caller predicates first, then the closed vocabulary.
func (p *Poller) classify(h Handle, payload Payload) (Status, error) {
	okSuccess := p.cfg.IsSuccess != nil && p.cfg.IsSuccess(payload)
	okFailure := p.cfg.IsFailure != nil && p.cfg.IsFailure(payload)

	switch {
	case okSuccess && okFailure:
		return StatusUnknown, &ProtocolError{
			Handle:    h,
			RawStatus: payload.Status,
			Reason:    "status satisfies both success and failure predicates",
		}
	case okSuccess:
		return StatusSucceeded, nil
	case okFailure:
		return StatusFailed, nil
	}

	if matches(payload.Status, p.cfg.ProgressStatuses) {
		return StatusProcessing, nil
	}

	status := Classify(payload.Status)
	if status == StatusUnknown {
		return StatusUnknown, &ProtocolError{
			Handle:    h,
			RawStatus: payload.Status,
			Reason:    "unrecognized status",
		}
	}
	return status, nil
}

// nextInterval returns the wait before the poll after the given 0-indexed
// attempt, applying capped exponential backoff when configured.
func (p *Poller) nextInterval(attempt int) time.Duration {
	wait := p.cfg.Interval
	if p.cfg.BackoffMultiplier > 1 {
		for i := 0; i < attempt; i++ {
			wait = time.Duration(float64(wait) * p.cfg.BackoffMultiplier)
			if wait >= p.cfg.MaxInterval {
				return p.cfg.MaxInterval
			}
		}
	}
	return wait
}

// sleepCtx waits for d or until the context is canceled, whichever comes
// first, without leaving an orphaned timer.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
