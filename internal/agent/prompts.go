package agent

import (
	"strings"
)

// Prior is the output of an earlier task offered as context to a later one.
type Prior struct {
	Label   string
	Content string
}

// EnrichPrompt appends prior outputs to prompt as a context section.
// With no priors the prompt is returned unchanged.
func EnrichPrompt(prompt string, priors []Prior) string {
	if len(priors) == 0 {
		return prompt
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\n## Context from previous tasks\n")
	for _, p := range priors {
		sb.WriteString("\n### ")
		sb.WriteString(p.Label)
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(p.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}
