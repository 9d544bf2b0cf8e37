package agents

import (
	"context"
	"fmt"
	"sync"
)

// PhaseRequest carries everything an executor needs for one phase call.
// Payload holds artifacts from earlier phases; executors must treat it as
// read-only.
type PhaseRequest struct {
	// Agent is the agent name the phase belongs to.
	Agent string
	// Phase is the phase to execute.
	Phase string
	// Topic is the task's human-readable subject.
	Topic string
	// Hint carries accumulated user instructions.
	Hint string
	// Instruction is the revision text for Revise calls, empty for Execute.
	Instruction string
	// Payload maps earlier phase names to their artifacts.
	Payload map[string]string
}

// PhaseResult is the outcome of one phase call. CostUSD is the billed cost
// when the executor knows it; otherwise token counts let the ledger derive
// the cost from configured rates.
type PhaseResult struct {
	// Output is the artifact produced by the phase.
	Output string
	// CostUSD is the incremental spend for this call.
	CostUSD float64
	// InputTokens/OutputTokens are set when only token usage is known.
	InputTokens  int64
	OutputTokens int64
}

// PhaseExecutor performs the actual work of an agent's phases. The core
// calls it at most once per transition and surfaces any error as a terminal
// errored state; retries, if any, live inside the executor.
type PhaseExecutor interface {
	// Execute runs the named phase.
	Execute(ctx context.Context, req PhaseRequest) (PhaseResult, error)
	// Revise re-runs the named phase with a revision instruction, replacing
	// its artifact.
	Revise(ctx context.Context, req PhaseRequest) (PhaseResult, error)
}

// ExecutorSet maps agent names to their executors.
type ExecutorSet struct {
	mu    sync.RWMutex
	execs map[string]PhaseExecutor
}

// NewExecutorSet creates an empty ExecutorSet.
func NewExecutorSet() *ExecutorSet {
	return &ExecutorSet{execs: make(map[string]PhaseExecutor)}
}

// Register binds an executor to an agent name, replacing any previous one.
func (s *ExecutorSet) Register(agent string, exec PhaseExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[agent] = exec
}

// Get returns the executor for an agent.
func (s *ExecutorSet) Get(agent string) (PhaseExecutor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.execs[agent]
	if !ok {
		return nil, fmt.Errorf("no executor registered for agent %q", agent)
	}
	return exec, nil
}
