package agent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoExecutor is returned when a call is made without an executor.
var ErrNoExecutor = errors.New("no executor configured")

// ExecutionError is a failed agent call that was neither a timeout nor a
// cancellation.
type ExecutionError struct {
	Agent string
	Task  string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %s failed on task %s: %v", orUnknown(e.Agent), orUnknown(e.Task), e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// TimeoutError is a call that exceeded its per-task bound or the deadline
// of the caller's context. Timeout is zero when only the caller's
// deadline applied.
type TimeoutError struct {
	Agent   string
	Task    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout <= 0 {
		return fmt.Sprintf("agent %s timed out on task %s: deadline exceeded", orUnknown(e.Agent), orUnknown(e.Task))
	}
	return fmt.Sprintf("agent %s timed out on task %s after %s", orUnknown(e.Agent), orUnknown(e.Task), e.Timeout)
}

// Unwrap lets errors.Is match context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// CanceledError is a call abandoned because the surrounding run was
// cancelled.
type CanceledError struct {
	Agent string
	Task  string
	Err   error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("agent %s canceled on task %s: %v", orUnknown(e.Agent), orUnknown(e.Task), e.Err)
}

func (e *CanceledError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a per-task or caller deadline timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCanceled reports whether err is a run cancellation.
func IsCanceled(err error) bool {
	var ce *CanceledError
	return errors.As(err, &ce)
}

// Retryable reports whether a failed call may be attempted again.
// Cancellations are final.
func Retryable(err error) bool {
	return err != nil && !IsCanceled(err)
}

// classify turns a raw failure into the typed error the engine records.
// parent is the caller's context, call the per-call derived one. An
// expired caller deadline is a timeout; any other parent error is a
// cancellation.
func classify(parent, call context.Context, req Request, err error) error {
	switch {
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return &TimeoutError{Agent: req.AgentID, Task: req.TaskID}
	case parent.Err() != nil:
		return &CanceledError{Agent: req.AgentID, Task: req.TaskID, Err: parent.Err()}
	case req.Timeout > 0 && errors.Is(call.Err(), context.DeadlineExceeded):
		return &TimeoutError{Agent: req.AgentID, Task: req.TaskID, Timeout: req.Timeout}
	}

	var (
		te *TimeoutError
		ce *CanceledError
		ee *ExecutionError
	)
	if errors.As(err, &te) || errors.As(err, &ce) || errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{Agent: req.AgentID, Task: req.TaskID, Err: err}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unnamed)"
	}
	return s
}
