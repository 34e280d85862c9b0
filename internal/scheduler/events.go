package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/maestro/internal/logging"
)

// EventType represents the type of workflow event.
type EventType string

const (
	// EventWorkflowStarted indicates a run has passed validation and begun.
	EventWorkflowStarted EventType = "workflow_started"
	// EventWorkflowCompleted indicates a run has finished, successfully or not.
	EventWorkflowCompleted EventType = "workflow_completed"
	// EventStepStarted indicates a step has been launched.
	EventStepStarted EventType = "step_started"
	// EventStepCompleted indicates a step succeeded.
	EventStepCompleted EventType = "step_completed"
	// EventStepFailed indicates a step's last attempt failed.
	EventStepFailed EventType = "step_failed"
	// EventStepRetrying indicates a failed attempt is about to be retried.
	EventStepRetrying EventType = "step_retrying"
	// EventStepSkipped indicates a step will never execute in this run.
	EventStepSkipped EventType = "step_skipped"
)

// Event is emitted by the engine as a run progresses.
type Event struct {
	Type     EventType
	RunID    string
	Workflow string
	// StepID and AgentID are set for step events.
	StepID  string
	AgentID string
	// Attempt is the upcoming attempt number for retry events.
	Attempt int
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error     error
	Timestamp time.Time
	// Duration is the step or run duration for completion events.
	Duration time.Duration
}

// EventEmitter delivers events to a single subscriber over a buffered
// channel. A nil emitter discards events.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       *logging.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int, logger *logging.Logger) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		logger: logger.With("events"),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a chance to drain.
	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.logger.Log("event channel full, dropped event (total dropped: %d): type=%s step=%s", count, event.Type, event.StepID)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	if e == nil {
		return 0
	}
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Later emits are discarded.
func (e *EventEmitter) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.closed = true
		close(e.events)
	})
}
