package classifier

import (
	"strings"
	"unicode"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// keywordRule maps whole-word phrases to a task type.
type keywordRule struct {
	Type       models.TaskType
	Confidence float64
	Keywords   []string
}

// keywordRules is checked in order; the first rule with a matching phrase
// wins. Narrow categories come before broad ones so "find citations"
// is a citation request rather than a literature search.
var keywordRules = []keywordRule{
	{
		Type:       models.TaskTypeCitation,
		Confidence: 0.85,
		Keywords: []string{
			"citation", "citations", "cite", "cites", "citing",
			"bibliography", "reference list", "references",
			"apa", "mla", "chicago style", "harvard style", "bibtex",
		},
	},
	{
		Type:       models.TaskTypePlagiarism,
		Confidence: 0.85,
		Keywords: []string{
			"plagiarism", "plagiarized", "plagiarised", "originality",
			"copied", "similarity check", "attribution",
		},
	},
	{
		Type:       models.TaskTypeTranslation,
		Confidence: 0.85,
		Keywords: []string{
			"translate", "translation", "translating", "translated",
			"into english", "into spanish", "into french", "into german", "into chinese",
		},
	},
	{
		Type:       models.TaskTypeLiterature,
		Confidence: 0.75,
		Keywords: []string{
			"literature", "papers", "paper", "search", "find", "survey",
			"related work", "state of the art", "sources", "studies", "publications",
		},
	},
	{
		Type:       models.TaskTypeAnalysis,
		Confidence: 0.75,
		Keywords: []string{
			"analyze", "analyse", "analysis", "statistics", "statistical",
			"data", "dataset", "regression", "significance", "methodology",
		},
	},
	{
		Type:       models.TaskTypeWriting,
		Confidence: 0.70,
		Keywords: []string{
			"write", "writing", "draft", "edit", "proofread", "rewrite",
			"essay", "abstract", "introduction", "conclusion", "grammar",
		},
	},
}

// ClassifyKeywords labels text using the ordered keyword rules. It is
// deterministic and total: text matching no rule is comprehensive.
func ClassifyKeywords(text string) Selection {
	normalized := " " + normalize(text) + " "

	for _, rule := range keywordRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, " "+kw+" ") {
				return Selection{
					Type:       rule.Type,
					Source:     SourceKeyword,
					Confidence: rule.Confidence,
					Keyword:    kw,
					Reason:     "matched " + string(rule.Type) + " keyword",
				}
			}
		}
	}

	return Selection{
		Type:       models.TaskTypeComprehensive,
		Source:     SourceDefault,
		Confidence: 0.5,
		Reason:     "no keyword match, defaulting to comprehensive",
	}
}

// normalize lowercases text and collapses every run of non-alphanumeric
// characters into one space.
func normalize(text string) string {
	var sb strings.Builder
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			space = false
			continue
		}
		if !space {
			sb.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(sb.String())
}
