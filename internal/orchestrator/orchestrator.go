// Package orchestrator composes classification, routing and the
// literature-review pipeline into a single entry point.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShayCichocki/maestro/internal/classifier"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/internal/router"
	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Orchestrator dispatches research requests.
type Orchestrator struct {
	cfg    RequiredConfig
	opts   orchestratorOptions
	logger *logging.Logger
}

// New creates an Orchestrator. It returns an error if a required field is
// missing.
func New(cfg RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if cfg.Agents == nil {
		return nil, errors.New("orchestrator: Agents is required")
	}
	if cfg.Router == nil {
		return nil, errors.New("orchestrator: Router is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.classifier == nil {
		o.classifier = classifier.New(classifier.WithLogger(o.logger))
	}
	if o.maxPapers < 1 {
		o.maxPapers = 1
	}
	if o.analysisConcurrency < 1 {
		o.analysisConcurrency = 1
	}

	return &Orchestrator{
		cfg:    cfg,
		opts:   o,
		logger: o.logger.With("orchestrator"),
	}, nil
}

// Request is a user request.
type Request struct {
	Text string
	// Type skips classification when set.
	Type          models.TaskType
	StopOnFailure bool
	Retry         models.RetryPolicy
}

// Response holds whichever path handled the request.
type Response struct {
	Selection classifier.Selection
	// Review is set for literature requests.
	Review *Review
	// Route is set for every other type.
	Route *router.Result
}

// Handle classifies req and runs it: literature requests go through the
// review pipeline, everything else through the router. A nil sctx gets a
// fresh context.
func (o *Orchestrator) Handle(ctx context.Context, req Request, sctx *session.Context) (*Response, error) {
	if sctx == nil {
		sctx = session.New()
	}

	sel := o.opts.classifier.ClassifyDetailed(ctx, classifier.Request{Text: req.Text, Type: req.Type})
	o.logger.Log("request classified as %s (%s)", sel.Type, sel.Source)
	sctx.Set(KeyRequest, req.Text)
	sctx.Set(KeyTaskType, string(sel.Type))

	if sel.Type == models.TaskTypeLiterature {
		review, err := o.ReviewLiterature(ctx, req.Text, sctx)
		if err != nil {
			return &Response{Selection: sel, Review: review}, fmt.Errorf("literature review: %w", err)
		}
		return &Response{Selection: sel, Review: review}, nil
	}

	res, err := o.cfg.Router.Route(ctx, router.Request{
		Text:          req.Text,
		Type:          sel.Type,
		StopOnFailure: req.StopOnFailure,
		Retry:         req.Retry,
	}, sctx)
	if err != nil {
		return nil, err
	}
	res.Selection = sel
	return &Response{Selection: sel, Route: res}, nil
}
