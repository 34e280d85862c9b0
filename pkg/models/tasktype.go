package models

import "strings"

// TaskType is the closed set of request categories the router understands.
type TaskType string

const (
	TaskTypeLiterature    TaskType = "literature"
	TaskTypeCitation      TaskType = "citation"
	TaskTypeWriting       TaskType = "writing"
	TaskTypeAnalysis      TaskType = "analysis"
	TaskTypeTranslation   TaskType = "translation"
	TaskTypePlagiarism    TaskType = "plagiarism"
	TaskTypeComprehensive TaskType = "comprehensive"
)

// TaskTypes lists every known task type.
var TaskTypes = []TaskType{
	TaskTypeLiterature,
	TaskTypeCitation,
	TaskTypeWriting,
	TaskTypeAnalysis,
	TaskTypeTranslation,
	TaskTypePlagiarism,
	TaskTypeComprehensive,
}

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTaskType normalizes s and returns the matching type.
func ParseTaskType(s string) (TaskType, bool) {
	t := TaskType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, true
	}
	return "", false
}
