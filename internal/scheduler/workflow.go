package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Format is a workflow definition encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseWorkflow decodes a workflow definition. The result is not validated.
func ParseWorkflow(data []byte, format Format) (*models.Workflow, error) {
	var wf models.Workflow
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow yaml: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown workflow format %q", format)
	}
	return &wf, nil
}

// LoadWorkflow reads and decodes a workflow definition file.
func LoadWorkflow(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return ParseWorkflow(data, FormatFromPath(path))
}

// MarshalWorkflow encodes a workflow definition.
func MarshalWorkflow(wf *models.Workflow, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(wf)
	case FormatJSON, "":
		return json.MarshalIndent(wf, "", "  ")
	default:
		return nil, fmt.Errorf("unknown workflow format %q", format)
	}
}

// SaveWorkflow writes wf to path in the format implied by its extension.
func SaveWorkflow(path string, wf *models.Workflow) error {
	data, err := MarshalWorkflow(wf, FormatFromPath(path))
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create workflow directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}
	return nil
}
