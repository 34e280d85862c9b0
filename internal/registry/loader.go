package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// definitionFile is the on-disk shape. A file holds either a single agent
// or a list under "agents".
type definitionFile struct {
	Agents []models.AgentMetadata `yaml:"agents"`
}

// IsDefinitionFile reports whether path has a recognised extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// ParseDefinitions decodes agent definitions from YAML or JSON.
func ParseDefinitions(data []byte) ([]models.AgentMetadata, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Agents) > 0 {
		return file.Agents, nil
	}

	var single models.AgentMetadata
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parse agent definition: %w", err)
	}
	if single.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidAgent)
	}
	return []models.AgentMetadata{single}, nil
}

// LoadFile reads agent definitions from path.
func LoadFile(path string) ([]models.AgentMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	agents, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, md := range agents {
		if err := Validate(md); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return agents, nil
}

// LoadDir reads every definition file in dir, in name order. A missing
// directory yields no agents.
func LoadDir(dir string) ([]models.AgentMetadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read agent dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var agents []models.AgentMetadata
	for _, name := range names {
		loaded, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		agents = append(agents, loaded...)
	}
	return agents, nil
}

// Overlay returns base with every entry of extra applied on top by name.
func Overlay(base, extra []models.AgentMetadata) []models.AgentMetadata {
	index := make(map[string]int, len(base)+len(extra))
	out := make([]models.AgentMetadata, 0, len(base)+len(extra))
	for _, md := range append(append([]models.AgentMetadata(nil), base...), extra...) {
		if i, ok := index[md.Name]; ok {
			out[i] = md
			continue
		}
		index[md.Name] = len(out)
		out = append(out, md)
	}
	return out
}
