package orchestrator

import (
	"time"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/classifier"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/internal/router"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Agents resolves the pipeline's stage agents by name.
	Agents agent.Resolver
	// Router handles every request that is not a literature review.
	Router *router.Router
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	classifier          *classifier.Classifier
	maxPapers           int
	analysisConcurrency int
	stageTimeout        time.Duration
	logger              *logging.Logger
}

func defaultOptions() orchestratorOptions {
	return orchestratorOptions{
		maxPapers:           8,
		analysisConcurrency: 4,
		stageTimeout:        5 * time.Minute,
	}
}

// WithClassifier sets the classifier used by Handle. Without one, requests
// are classified by keyword only.
func WithClassifier(c *classifier.Classifier) Option {
	return func(o *orchestratorOptions) { o.classifier = c }
}

// WithMaxPapers caps how many search results are analyzed.
func WithMaxPapers(n int) Option {
	return func(o *orchestratorOptions) { o.maxPapers = n }
}

// WithAnalysisConcurrency bounds the per-paper analysis fan-out.
func WithAnalysisConcurrency(n int) Option {
	return func(o *orchestratorOptions) { o.analysisConcurrency = n }
}

// WithStageTimeout bounds each stage's agent call.
func WithStageTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.stageTimeout = d }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}
