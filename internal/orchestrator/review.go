package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/registry"
	"github.com/ShayCichocki/maestro/internal/session"
)

// Context keys written by the orchestrator.
const (
	KeyRequest   = "request"
	KeyTaskType  = "taskType"
	KeyTopic     = "review.topic"
	KeyPapers    = "review.papers"
	KeyAnalyses  = "review.analyses"
	KeyGaps      = "review.gaps"
	KeySynthesis = "review.synthesis"
)

// Sender identifies the orchestrator in message history.
const Sender = "orchestrator"

// Paper is one search result.
type Paper struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Summary string   `json:"summary,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// Review is the output of the literature-review pipeline. Fields are
// filled stage by stage, so a failed run returns what it got to.
type Review struct {
	Topic    string   `json:"topic"`
	Papers   []Paper  `json:"papers"`
	Analyses []string `json:"analyses"`
	// FailedAnalyses counts papers whose analysis is a placeholder.
	FailedAnalyses int    `json:"failedAnalyses"`
	Gaps           string `json:"gaps"`
	Synthesis      string `json:"synthesis"`
}

// ReviewLiterature runs search, per-paper analysis, gap identification
// and synthesis in order. Each stage's output is written to sctx before
// the next stage starts. A failed analysis becomes a placeholder rather
// than failing the review; a failure in any other stage ends it.
func (o *Orchestrator) ReviewLiterature(ctx context.Context, topic string, sctx *session.Context) (*Review, error) {
	if sctx == nil {
		sctx = session.New()
	}
	review := &Review{Topic: topic}
	sctx.Set(KeyTopic, topic)

	// Stage 1: search.
	found, err := o.call(ctx, sctx, registry.AgentLiteratureSearch, "search", searchPrompt(topic, o.opts.maxPapers))
	if err != nil {
		return review, fmt.Errorf("search: %w", err)
	}
	review.Papers = ParsePapers(found, o.opts.maxPapers)
	sctx.Set(KeyPapers, review.Papers)
	o.logger.Log("search returned %d paper(s) for %q", len(review.Papers), topic)

	// Stage 2: analyze each paper concurrently.
	review.Analyses, review.FailedAnalyses = o.analyzeAll(ctx, sctx, review.Papers)
	sctx.Set(KeyAnalyses, review.Analyses)

	// Stage 3: gaps over the aggregated analyses.
	gaps, err := o.call(ctx, sctx, registry.AgentGapAnalyzer, "gaps", gapsPrompt(topic, review.Analyses))
	if err != nil {
		return review, fmt.Errorf("identify gaps: %w", err)
	}
	review.Gaps = gaps
	sctx.Set(KeyGaps, gaps)

	// Stage 4: synthesis over everything.
	synthesis, err := o.call(ctx, sctx, registry.AgentSynthesizer, "synthesize", synthesisPrompt(topic, review))
	if err != nil {
		return review, fmt.Errorf("synthesize: %w", err)
	}
	review.Synthesis = synthesis
	sctx.Set(KeySynthesis, synthesis)

	o.logger.Log("review of %q complete (%d analyses, %d placeholders)", topic, len(review.Analyses), review.FailedAnalyses)
	return review, nil
}

// analyzeAll maps every paper through the analyzer with bounded
// concurrency. Results keep paper order.
func (o *Orchestrator) analyzeAll(ctx context.Context, sctx *session.Context, papers []Paper) ([]string, int) {
	analyses := make([]string, len(papers))
	failed := make([]bool, len(papers))

	var g errgroup.Group
	g.SetLimit(o.opts.analysisConcurrency)
	for i, p := range papers {
		g.Go(func() error {
			text, err := o.call(ctx, sctx, registry.AgentPaperAnalyzer, "analyze-"+strconv.Itoa(i+1), analysisPrompt(p))
			if err != nil {
				analyses[i] = fmt.Sprintf("[Analysis unavailable for %q: %v]", p.Title, err)
				failed[i] = true
				return nil
			}
			analyses[i] = text
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return analyses, n
}

// call sends one prompt to a named agent, recording the request and the
// response or error in the context's message history.
func (o *Orchestrator) call(ctx context.Context, sctx *session.Context, agentName, taskID, prompt string) (string, error) {
	sctx.RegisterAgent(agentName)
	sctx.SendMessage(session.Message{
		From:    Sender,
		To:      session.To(agentName),
		Type:    session.MessageRequest,
		Content: prompt,
	})

	exec, err := o.cfg.Agents.Resolve(agentName)
	if err != nil {
		o.reportError(sctx, agentName, err)
		return "", err
	}
	resp, err := agent.Invoke(ctx, exec, agent.Request{
		Prompt:  prompt,
		Timeout: o.opts.stageTimeout,
		TaskID:  taskID,
		AgentID: agentName,
	})
	if err != nil {
		o.reportError(sctx, agentName, err)
		return "", err
	}

	sctx.SendMessage(session.Message{
		From:    agentName,
		To:      session.To(Sender),
		Type:    session.MessageResponse,
		Content: resp.Content,
	})
	return resp.Content, nil
}

func (o *Orchestrator) reportError(sctx *session.Context, agentName string, err error) {
	o.logger.Log("%s failed: %v", agentName, err)
	sctx.SendMessage(session.Message{
		From:    agentName,
		To:      session.To(Sender),
		Type:    session.MessageError,
		Content: err.Error(),
	})
}

var listMarker = regexp.MustCompile(`^\s*(?:#+|[-*•]|\d+[.)])\s*`)

// ParsePapers reads search results from an agent's answer. A JSON array
// of papers (fenced or bare) is preferred; otherwise every non-empty line
// is taken as a title with list markers removed. At most limit papers are
// returned.
func ParsePapers(content string, limit int) []Paper {
	var papers []Paper
	if err := agent.ExtractJSON(content, &papers); err != nil || len(papers) == 0 {
		papers = nil
		for _, line := range strings.Split(content, "\n") {
			title := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
			if title == "" || strings.HasPrefix(title, "```") {
				continue
			}
			papers = append(papers, Paper{Title: title})
		}
	}

	kept := papers[:0]
	for _, p := range papers {
		if strings.TrimSpace(p.Title) != "" {
			kept = append(kept, p)
		}
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func searchPrompt(topic string, limit int) string {
	return fmt.Sprintf(`Find up to %d of the most relevant academic papers on the following topic.

Topic: %s

Respond with a JSON array inside a `+"```json"+` fence. Each element must have "title", "authors", "year" and "summary" fields.`, limit, topic)
}

func analysisPrompt(p Paper) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following paper. Cover its methodology, key findings and limitations.\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", p.Title)
	if len(p.Authors) > 0 {
		fmt.Fprintf(&sb, "Authors: %s\n", strings.Join(p.Authors, ", "))
	}
	if p.Year > 0 {
		fmt.Fprintf(&sb, "Year: %d\n", p.Year)
	}
	if p.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", p.Summary)
	}
	return sb.String()
}

func gapsPrompt(topic string, analyses []string) string {
	priors := make([]agent.Prior, len(analyses))
	for i, a := range analyses {
		priors[i] = agent.Prior{Label: fmt.Sprintf("Analysis %d", i+1), Content: a}
	}
	return agent.EnrichPrompt(
		fmt.Sprintf("Identify the research gaps and open questions on %q across these paper analyses.", topic),
		priors)
}

func synthesisPrompt(topic string, r *Review) string {
	priors := make([]agent.Prior, 0, len(r.Analyses)+1)
	for i, a := range r.Analyses {
		label := fmt.Sprintf("Analysis %d", i+1)
		if i < len(r.Papers) {
			label = r.Papers[i].Title
		}
		priors = append(priors, agent.Prior{Label: label, Content: a})
	}
	priors = append(priors, agent.Prior{Label: "Research gaps", Content: r.Gaps})
	return agent.EnrichPrompt(
		fmt.Sprintf("Write a literature review on %q that synthesizes the analyses and research gaps below.", topic),
		priors)
}
