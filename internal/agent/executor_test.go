package agent

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

func TestInvoke_Success(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Content: "echo: " + req.Prompt}, nil
	})

	resp, err := Invoke(context.Background(), exec, Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "echo: hi" {
		t.Errorf("expected echo, got %q", resp.Content)
	}
}

func TestInvoke_NilResponseBecomesEmpty(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		return nil, nil
	})
	resp, err := Invoke(context.Background(), exec, Request{})
	if err != nil || resp == nil {
		t.Fatalf("expected empty response, got %v, %v", resp, err)
	}
}

func TestInvoke_NoExecutor(t *testing.T) {
	_, err := Invoke(context.Background(), nil, Request{AgentID: "ghost"})
	if !errors.Is(err, ErrNoExecutor) {
		t.Errorf("expected ErrNoExecutor, got %v", err)
	}
}

func TestInvoke_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		return nil, boom
	})

	_, err := Invoke(context.Background(), exec, Request{AgentID: "writer", TaskID: "t1"})
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecutionError, got %T: %v", err, err)
	}
	if ee.Agent != "writer" || ee.Task != "t1" || !errors.Is(err, boom) {
		t.Errorf("unexpected error fields: %+v", ee)
	}
}

func TestInvoke_TimeoutWithUncooperativeExecutor(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		<-release // ignores ctx
		return &Response{Content: "late"}, nil
	})

	start := time.Now()
	_, err := Invoke(context.Background(), exec, Request{Timeout: 20 * time.Millisecond})
	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected TimeoutError to match context.DeadlineExceeded")
	}
	if time.Since(start) > time.Second {
		t.Error("Invoke did not return promptly after the timeout")
	}
}

func TestInvoke_TimeoutWithCooperativeExecutor(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := Invoke(context.Background(), exec, Request{Timeout: 10 * time.Millisecond})
	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestInvoke_CancelIsDistinctFromTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	go func() {
		<-started
		cancel()
	}()

	_, err := Invoke(ctx, exec, Request{Timeout: time.Minute})
	if !IsCanceled(err) {
		t.Fatalf("expected CanceledError, got %T: %v", err, err)
	}
	if IsTimeout(err) {
		t.Error("cancellation must not be reported as timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected CanceledError to wrap context.Canceled")
	}
}

func TestInvoke_CallerDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := Invoke(ctx, exec, Request{AgentID: "a", TaskID: "t"})
	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if IsCanceled(err) {
		t.Error("caller deadline must not be reported as cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected TimeoutError to wrap context.DeadlineExceeded")
	}
	if !strings.Contains(err.Error(), "deadline exceeded") {
		t.Errorf("unexpected message: %q", err.Error())
	}

	// An already expired deadline is reported the same way.
	_, err = Invoke(ctx, exec, Request{})
	if !IsTimeout(err) {
		t.Errorf("expected TimeoutError for expired context, got %T: %v", err, err)
	}
}

func TestInvokeWithRetry_CallerDeadlineStopsRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls.Add(1)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, attempts, err := InvokeWithRetry(ctx, exec, Request{}, RetryOptions{
		Policy: models.RetryPolicy{Kind: models.RetryFixed, MaxRetries: 5, DelayMS: 1},
	})
	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if attempts != 1 || calls.Load() != 1 {
		t.Errorf("expected a single attempt, got attempts=%d calls=%d", attempts, calls.Load())
	}
}

func TestInvoke_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		called.Store(true)
		return &Response{}, nil
	})

	_, err := Invoke(ctx, exec, Request{})
	if !IsCanceled(err) {
		t.Fatalf("expected CanceledError, got %v", err)
	}
	if called.Load() {
		t.Error("executor should not run on a canceled context")
	}
}

func TestInvoke_RecoversPanic(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		panic("kaboom")
	})
	_, err := Invoke(context.Background(), exec, Request{})
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecutionError, got %T: %v", err, err)
	}
}

func TestInvokeWithRetry_LastOutcomeWins(t *testing.T) {
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("flaky")
		}
		return &Response{Content: "ok"}, nil
	})

	var waits []time.Duration
	var retried []int
	resp, attempts, err := InvokeWithRetry(context.Background(), exec, Request{}, RetryOptions{
		Policy: models.RetryPolicy{Kind: models.RetryExponential, MaxRetries: 3, DelayMS: 10},
		Sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
		OnRetry: func(attempt int, wait time.Duration, err error) {
			retried = append(retried, attempt)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" || attempts != 3 {
		t.Errorf("expected ok after 3 attempts, got %q after %d", resp.Content, attempts)
	}
	if len(waits) != 2 || waits[0] != 10*time.Millisecond || waits[1] != 20*time.Millisecond {
		t.Errorf("expected doubling backoff [10ms 20ms], got %v", waits)
	}
	if len(retried) != 2 || retried[0] != 2 || retried[1] != 3 {
		t.Errorf("expected retry hooks for attempts 2 and 3, got %v", retried)
	}
}

func TestInvokeWithRetry_ExhaustsAndReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		n := calls.Add(1)
		return nil, errors.New("attempt failed " + string(rune('0'+n)))
	})

	_, attempts, err := InvokeWithRetry(context.Background(), exec, Request{}, RetryOptions{
		Policy: models.RetryPolicy{Kind: models.RetryFixed, MaxRetries: 2},
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *ExecutionError
	if !errors.As(err, &ee) || ee.Err.Error() != "attempt failed 3" {
		t.Errorf("expected last attempt's error, got %v", err)
	}
}

func TestInvokeWithRetry_NoPolicyMeansOneAttempt(t *testing.T) {
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls.Add(1)
		return nil, errors.New("nope")
	})
	_, attempts, err := InvokeWithRetry(context.Background(), exec, Request{}, RetryOptions{})
	if err == nil || attempts != 1 || calls.Load() != 1 {
		t.Errorf("expected a single failed attempt, got attempts=%d calls=%d err=%v", attempts, calls.Load(), err)
	}
}

func TestInvokeWithRetry_CancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls.Add(1)
		return nil, errors.New("fail")
	})

	_, _, err := InvokeWithRetry(ctx, exec, Request{}, RetryOptions{
		Policy: models.RetryPolicy{Kind: models.RetryFixed, MaxRetries: 5, DelayMS: 1},
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})
	if !IsCanceled(err) {
		t.Fatalf("expected CanceledError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls.Load())
	}
}

func TestDirectory_Resolve(t *testing.T) {
	d := NewDirectory(nil)
	d.Register("writer", Text("draft"))

	exec, err := d.Resolve("writer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, _ := exec.Execute(context.Background(), Request{})
	if resp.Content != "draft" {
		t.Errorf("expected draft, got %q", resp.Content)
	}

	if _, err := d.Resolve("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}

	withFallback := NewDirectory(Text("fallback"))
	if _, err := withFallback.Resolve("ghost"); err != nil {
		t.Errorf("expected fallback executor, got %v", err)
	}
	if names := d.Names(); len(names) != 1 || names[0] != "writer" {
		t.Errorf("unexpected names: %v", names)
	}
}
