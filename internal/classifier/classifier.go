// Package classifier maps free-form requests to a task type.
//
// An explicit type always wins. Otherwise an agent is asked to pick a
// category from the closed taxonomy; if no agent is configured, or the
// call fails, or the answer is not a known category, the keyword rules
// decide instead. Classify never fails.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Source records how a selection was made.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceAgent    Source = "agent"
	SourceKeyword  Source = "keyword"
	SourceDefault  Source = "default"
)

// Request is the input to classification.
type Request struct {
	Text string
	// Type, when set, is returned as-is.
	Type models.TaskType
}

// Selection is a classification with its provenance.
type Selection struct {
	Type       models.TaskType
	Source     Source
	Confidence float64
	// Keyword is the phrase that matched, for keyword selections.
	Keyword string
	Reason  string
}

// ErrUnrecognizedCategory is returned when an agent answers outside the taxonomy.
var ErrUnrecognizedCategory = errors.New("unrecognized category")

// ClassificationError is a failure of the agent path. It is logged and
// recovered by the keyword fallback; Classify never returns it.
type ClassificationError struct {
	Response string
	Err      error
}

func (e *ClassificationError) Error() string {
	if e.Response != "" {
		return fmt.Sprintf("classification failed (response %q): %v", e.Response, e.Err)
	}
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// DefaultTimeout bounds the agent classification call.
const DefaultTimeout = 30 * time.Second

// Classifier labels requests with a TaskType.
type Classifier struct {
	exec    agent.Executor
	timeout time.Duration
	logger  *logging.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithExecutor enables the agent path.
func WithExecutor(exec agent.Executor) Option {
	return func(c *Classifier) { c.exec = exec }
}

// WithTimeout bounds the agent call.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Classifier) { c.logger = l.With("classifier") }
}

// New creates a classifier. Without WithExecutor only keywords are used.
func New(opts ...Option) *Classifier {
	c := &Classifier{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the task type for req.
func (c *Classifier) Classify(ctx context.Context, req Request) models.TaskType {
	return c.ClassifyDetailed(ctx, req).Type
}

// ClassifyDetailed returns the task type for req along with how it was chosen.
func (c *Classifier) ClassifyDetailed(ctx context.Context, req Request) Selection {
	if req.Type != "" {
		return Selection{
			Type:       req.Type,
			Source:     SourceExplicit,
			Confidence: 1,
			Reason:     "explicit type",
		}
	}

	if c.exec != nil {
		sel, err := c.classifyWithAgent(ctx, req.Text)
		if err == nil {
			return sel
		}
		c.logger.Log("agent classification failed, using keywords: %v", err)
	}

	sel := ClassifyKeywords(req.Text)
	c.logger.Log("keyword classification: type=%s keyword=%q", sel.Type, sel.Keyword)
	return sel
}

func (c *Classifier) classifyWithAgent(ctx context.Context, text string) (Selection, error) {
	resp, err := agent.Invoke(ctx, c.exec, agent.Request{
		Prompt:  Prompt(text),
		System:  "You classify research requests. Answer with exactly one word from the allowed list.",
		Timeout: c.timeout,
		AgentID: "classifier",
		TaskID:  "classify",
	})
	if err != nil {
		return Selection{}, &ClassificationError{Err: err}
	}

	t, ok := ParseCategory(resp.Content)
	if !ok {
		return Selection{}, &ClassificationError{Response: resp.Content, Err: ErrUnrecognizedCategory}
	}
	return Selection{
		Type:       t,
		Source:     SourceAgent,
		Confidence: 0.9,
		Reason:     "classified by agent",
	}, nil
}

// Prompt builds the closed-taxonomy classification prompt.
func Prompt(text string) string {
	names := make([]string, len(models.TaskTypes))
	for i, t := range models.TaskTypes {
		names[i] = string(t)
	}
	return fmt.Sprintf(`Classify the following research request into exactly one category.

Categories: %s

Use "comprehensive" when the request spans several categories or fits none.
Respond with the category name only.

Request: %s`, strings.Join(names, ", "), text)
}

// ParseCategory reads the first word of an agent's answer as a category.
func ParseCategory(response string) (models.TaskType, bool) {
	words := strings.Fields(normalize(response))
	if len(words) == 0 {
		return "", false
	}
	return models.ParseTaskType(words[0])
}
