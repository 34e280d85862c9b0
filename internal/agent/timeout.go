package agent

import (
	"context"
	"fmt"
)

// Invoke runs a single agent call bounded by req.Timeout and by ctx.
//
// The executor runs on its own goroutine so an executor that ignores its
// context cannot hold the caller past the deadline. Failures come back as
// *TimeoutError, *CanceledError or *ExecutionError; a panicking executor
// is reported as an execution error.
func Invoke(ctx context.Context, exec Executor, req Request) (*Response, error) {
	if exec == nil {
		return nil, &ExecutionError{Agent: req.AgentID, Task: req.TaskID, Err: ErrNoExecutor}
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, ctx, req, err)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if req.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		resp, err := exec.Execute(callCtx, req)
		done <- result{resp: resp, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-callCtx.Done():
		// Prefer a result that raced the deadline.
		select {
		case r = <-done:
		default:
			return nil, classify(ctx, callCtx, req, callCtx.Err())
		}
	}

	if r.err != nil {
		return nil, classify(ctx, callCtx, req, r.err)
	}
	if r.resp == nil {
		r.resp = &Response{}
	}
	return r.resp, nil
}
