package models

// PhaseSpec describes one phase in an agent's plan.
type PhaseSpec struct {
	// Name identifies the phase; it keys the task payload and step costs.
	Name string `json:"name" yaml:"name"`
	// Review marks the phase as a human checkpoint: after it executes, the
	// task pauses for review instead of advancing automatically.
	Review bool `json:"review,omitempty" yaml:"review,omitempty"`
}

// AgentProfile describes one agent known to the dispatcher.
type AgentProfile struct {
	// Name is the routing action identifier for the agent.
	Name string `json:"name" yaml:"name"`
	// Label is the one-line purpose description shown to users.
	Label string `json:"label" yaml:"label"`
	// Example is a sample request, used in help output.
	Example string `json:"example,omitempty" yaml:"example,omitempty"`
	// Phases is the ordered phase plan the state machine walks.
	Phases []PhaseSpec `json:"phases" yaml:"phases"`
	// DefaultEstimate is used when the agent has no run history yet.
	DefaultEstimate Estimate `json:"default_estimate" yaml:"default_estimate"`
}

// ReviewPhases returns the names of review-marked phases in plan order.
func (p AgentProfile) ReviewPhases() []string {
	var names []string
	for _, ph := range p.Phases {
		if ph.Review {
			names = append(names, ph.Name)
		}
	}
	return names
}

// PhaseIndex returns the position of the named phase, or -1 if absent.
func (p AgentProfile) PhaseIndex(name string) int {
	for i, ph := range p.Phases {
		if ph.Name == name {
			return i
		}
	}
	return -1
}
