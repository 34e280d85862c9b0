package registry

import "github.com/ShayCichocki/maestro/pkg/models"

// Built-in agent names.
const (
	AgentLiteratureSearch  = "literature-search"
	AgentPaperAnalyzer     = "paper-analyzer"
	AgentGapAnalyzer       = "gap-analyzer"
	AgentSynthesizer       = "synthesizer"
	AgentCitationFormatter = "citation-formatter"
	AgentWritingAssistant  = "writing-assistant"
	AgentProofreader       = "proofreader"
	AgentDataAnalyst       = "data-analyst"
	AgentTranslator        = "translator"
	AgentPlagiarismChecker = "plagiarism-checker"
	AgentClassifier        = "classifier"
)

// Defaults returns the built-in research agents.
func Defaults() []models.AgentMetadata {
	parallel := models.AgentExecution{Mode: models.ExecutionParallel}
	sequential := models.AgentExecution{Mode: models.ExecutionSequential}
	fork := models.AgentExecution{Mode: models.ExecutionFork}

	return []models.AgentMetadata{
		{
			Name:         AgentLiteratureSearch,
			Description:  "Finds relevant academic papers for a topic",
			Instructions: "You are a research librarian. Find relevant academic papers and answer with a JSON array of objects with title, authors, year and summary fields inside a ```json fence.",
			Capabilities: []string{"search"},
			Execution:    parallel,
		},
		{
			Name:         AgentPaperAnalyzer,
			Description:  "Analyzes a single paper's methods, findings and limitations",
			Instructions: "You are a careful reviewer. Summarize the methodology, key findings and limitations of the paper you are given.",
			Capabilities: []string{"read"},
			Dependencies: []string{AgentLiteratureSearch},
			Execution:    fork,
		},
		{
			Name:         AgentGapAnalyzer,
			Description:  "Identifies research gaps across analyses",
			Instructions: "You identify open research questions and gaps across a set of paper analyses.",
			Dependencies: []string{AgentPaperAnalyzer},
			Execution:    sequential,
		},
		{
			Name:         AgentSynthesizer,
			Description:  "Writes a literature review from analyses and gaps",
			Instructions: "You write well-structured literature reviews that synthesize themes, agreements, disagreements and gaps.",
			Capabilities: []string{"write"},
			Dependencies: []string{AgentPaperAnalyzer},
			Execution:    sequential,
		},
		{
			Name:         AgentCitationFormatter,
			Description:  "Formats references in a requested citation style",
			Instructions: "You format bibliographic references exactly in the requested citation style (APA by default).",
			Execution:    parallel,
		},
		{
			Name:         AgentWritingAssistant,
			Description:  "Drafts and restructures academic prose",
			Instructions: "You are an academic writing assistant. Improve clarity, structure and argument while keeping the author's voice.",
			Capabilities: []string{"write"},
			Execution:    sequential,
		},
		{
			Name:         AgentProofreader,
			Description:  "Checks grammar, style and consistency",
			Instructions: "You proofread academic text and list concrete corrections.",
			Dependencies: []string{AgentWritingAssistant},
			Execution:    sequential,
		},
		{
			Name:         AgentDataAnalyst,
			Description:  "Interprets data, statistics and results sections",
			Instructions: "You are a statistician. Explain the analysis, check assumptions and interpret results.",
			Capabilities: []string{"analyze"},
			Execution:    parallel,
		},
		{
			Name:         AgentTranslator,
			Description:  "Translates academic text preserving terminology",
			Instructions: "You translate academic text faithfully, preserving technical terminology and citations.",
			Execution:    parallel,
		},
		{
			Name:         AgentPlagiarismChecker,
			Description:  "Flags passages that may need attribution",
			Instructions: "You flag passages that look copied or insufficiently attributed and explain why.",
			Execution:    parallel,
		},
		{
			Name:         AgentClassifier,
			Description:  "Labels a request with a task category",
			Instructions: "You classify research requests. Answer with a single lowercase word.",
			Execution:    parallel,
		},
	}
}

// NewDefault returns a registry holding the built-in agents.
func NewDefault() *MemoryRegistry {
	r, err := NewMemory(Defaults()...)
	if err != nil {
		// Built-in definitions are static; failing here is a programming error.
		panic(err)
	}
	return r
}
