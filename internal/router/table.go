package router

import (
	"github.com/ShayCichocki/maestro/internal/registry"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Table maps each task type to the agents that handle it, in run order.
type Table map[models.TaskType][]string

// DefaultTable returns the built-in routing table over the default agents.
func DefaultTable() Table {
	return Table{
		models.TaskTypeLiterature: {
			registry.AgentLiteratureSearch,
			registry.AgentPaperAnalyzer,
			registry.AgentSynthesizer,
		},
		models.TaskTypeCitation: {
			registry.AgentCitationFormatter,
		},
		models.TaskTypeWriting: {
			registry.AgentWritingAssistant,
			registry.AgentProofreader,
		},
		models.TaskTypeAnalysis: {
			registry.AgentDataAnalyst,
			registry.AgentPaperAnalyzer,
		},
		models.TaskTypeTranslation: {
			registry.AgentTranslator,
		},
		models.TaskTypePlagiarism: {
			registry.AgentPlagiarismChecker,
		},
		models.TaskTypeComprehensive: {
			registry.AgentLiteratureSearch,
			registry.AgentPaperAnalyzer,
			registry.AgentWritingAssistant,
			registry.AgentCitationFormatter,
		},
	}
}

// Agents returns a copy of the agent names for t. Unknown types have none.
func (t Table) Agents(tt models.TaskType) []string {
	names := t[tt]
	out := make([]string, len(names))
	copy(out, names)
	return out
}
