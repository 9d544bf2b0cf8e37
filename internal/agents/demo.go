package agents

import (
	"context"
	"fmt"
)

// DemoExecutor is a scripted stand-in for a real agent backend, used for
// local dry runs and demos. It fabricates short artifacts at a small fixed
// cost per call and never touches the network.
type DemoExecutor struct {
	// CostPerPhase is the fabricated spend per call.
	CostPerPhase float64
}

// NewDemoExecutor creates a DemoExecutor with a small default per-phase cost.
func NewDemoExecutor() *DemoExecutor {
	return &DemoExecutor{CostPerPhase: 0.002}
}

// Execute implements PhaseExecutor.
func (d *DemoExecutor) Execute(ctx context.Context, req PhaseRequest) (PhaseResult, error) {
	if err := ctx.Err(); err != nil {
		return PhaseResult{}, err
	}
	out := fmt.Sprintf("[demo] %s/%s result for %q", req.Agent, req.Phase, firstNonEmpty(req.Topic, req.Hint, "your request"))
	return PhaseResult{Output: out, CostUSD: d.CostPerPhase}, nil
}

// Revise implements PhaseExecutor.
func (d *DemoExecutor) Revise(ctx context.Context, req PhaseRequest) (PhaseResult, error) {
	if err := ctx.Err(); err != nil {
		return PhaseResult{}, err
	}
	out := fmt.Sprintf("[demo] %s/%s revised per %q", req.Agent, req.Phase, req.Instruction)
	return PhaseResult{Output: out, CostUSD: d.CostPerPhase}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
