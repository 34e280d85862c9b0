package models

// ExecutionMode is an agent's declared concurrency preference.
type ExecutionMode string

const (
	// ExecutionSequential agents must run one after another.
	ExecutionSequential ExecutionMode = "sequential"
	// ExecutionParallel agents may run alongside others.
	ExecutionParallel ExecutionMode = "parallel"
	// ExecutionFork agents run in an isolated fork and may run alongside others.
	ExecutionFork ExecutionMode = "fork"
)

// Concurrent returns true if the mode allows running alongside other agents.
func (m ExecutionMode) Concurrent() bool {
	return m == ExecutionParallel || m == ExecutionFork
}

// Valid returns true if the mode is a known value.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ExecutionSequential, ExecutionParallel, ExecutionFork:
		return true
	default:
		return false
	}
}

// AgentExecution holds an agent's execution settings.
type AgentExecution struct {
	Mode ExecutionMode `json:"mode" yaml:"mode"`
}

// AgentMetadata describes a registered agent.
type AgentMetadata struct {
	// Name is the registry key.
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Instructions is the system prompt sent with every request to this agent.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	// Capabilities is the default capability allowlist.
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	// Dependencies names agents whose output this agent consumes.
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Execution    AgentExecution `json:"execution" yaml:"execution"`
	TimeoutMS    int64          `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}
