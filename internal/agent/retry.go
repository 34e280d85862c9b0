package agent

import (
	"context"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryOptions configures InvokeWithRetry.
type RetryOptions struct {
	Policy models.RetryPolicy
	// Sleep defaults to Sleep.
	Sleep Sleeper
	// OnRetry is called before each retry with the upcoming attempt number
	// (starting at 2), the wait and the error that triggered it.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// InvokeWithRetry calls Invoke until it succeeds or the policy's attempts
// are exhausted. Only the last attempt's response or error is returned,
// along with the number of attempts made. Cancellation is never retried,
// and nothing is retried once ctx is done.
func InvokeWithRetry(ctx context.Context, exec Executor, req Request, opts RetryOptions) (*Response, int, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	attempts := opts.Policy.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := Invoke(ctx, exec, req)
		if err == nil {
			return resp, attempt, nil
		}
		lastErr = err
		if attempt == attempts || !Retryable(err) || ctx.Err() != nil {
			return nil, attempt, err
		}

		wait := opts.Policy.Delay(attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, wait, err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			if ctx.Err() != nil {
				return nil, attempt, classify(ctx, ctx, req, serr)
			}
			return nil, attempt, &CanceledError{Agent: req.AgentID, Task: req.TaskID, Err: serr}
		}
	}
	return nil, attempts, lastErr
}
