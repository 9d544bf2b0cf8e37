package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/yamagen/frontdesk/internal/agents"
	"github.com/yamagen/frontdesk/pkg/models"
)

// confirmPrompt announces the routed agent and its estimate, and asks for
// the go-ahead.
func confirmPrompt(profile models.AgentProfile, est models.Estimate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I'll run the %s agent (%s).\n", profile.Name, profile.Label)
	fmt.Fprintf(&b, "Estimated time: %s, cost: %s", formatTimeRange(est.TimeLow, est.TimeHigh), formatCostRange(est.CostLowJPY, est.CostHighJPY))
	if est.Note != "" {
		fmt.Fprintf(&b, " (%s)", est.Note)
	}
	b.WriteString(".\nReply \"yes\" to start, optionally with extra instructions (\"yes, keep it short\"), or \"cancel\".")
	return b.String()
}

func confirmNoted() string {
	return "Got it, I'll factor that in. Reply \"yes\" to start or \"cancel\" to drop it."
}

// reviewPrompt shows a checkpoint artifact and the choices at it.
func reviewPrompt(phase, artifact string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is the %s result:\n\n%s\n\n", phase, artifact)
	b.WriteString("Reply \"finalize\" to continue, \"other options\" to go back, \"cancel\" to stop, or describe any change you want.")
	return b.String()
}

func reviewHelp() string {
	return strings.Join([]string{
		"At a checkpoint you can:",
		"  finalize       - accept and continue the remaining steps",
		"  other options  - go back to the previous checkpoint for a fresh take",
		"  cancel         - stop the task",
		"  anything else  - treated as a revision instruction for this step",
	}, "\n")
}

// completionSummary reports elapsed time and spend, with the per-phase
// breakdown in plan order.
func completionSummary(task models.Task, profile models.AgentProfile, rec models.HistoryRecord, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Done: %s\n", task.Topic)
	fmt.Fprintf(&b, "Took %s, cost $%.4f (about %s).\n", formatDuration(task.Elapsed(now)), task.TotalCostUSD, formatJPY(rec.CostJPY))
	if len(task.StepCosts) > 0 {
		b.WriteString("Breakdown:")
		for _, ph := range profile.Phases {
			if cost, ok := task.StepCosts[ph.Name]; ok {
				fmt.Fprintf(&b, "\n  %s: $%.4f", ph.Name, cost)
			}
		}
	}
	return b.String()
}

func cancelledMessage(task models.Task, jpyPerUSD float64) string {
	if task.TotalCostUSD > 0 {
		return fmt.Sprintf("Cancelled. Spent so far: $%.4f (about %s).", task.TotalCostUSD, formatJPY(task.TotalCostUSD*jpyPerUSD))
	}
	return "Cancelled. Nothing was run, so no cost."
}

func erroredMessage(phase string, cause error, task models.Task, jpyPerUSD float64) string {
	var b strings.Builder
	if phase == "" {
		fmt.Fprintf(&b, "Sorry, the task failed: %v", cause)
	} else {
		fmt.Fprintf(&b, "Sorry, the %s step failed: %v", phase, cause)
	}
	if task.TotalCostUSD > 0 {
		fmt.Fprintf(&b, "\nSpent before the failure: $%.4f (about %s).", task.TotalCostUSD, formatJPY(task.TotalCostUSD*jpyPerUSD))
	}
	return b.String()
}

func busyMessage(task models.Task) string {
	return fmt.Sprintf("Still working on %q (%s). I'll get back to you when it needs input.", task.Topic, task.State)
}

func unroutableMessage() string {
	return "I didn't catch what you need. Try \"help\" to see what I can do."
}

func nothingActiveMessage() string {
	return "Nothing is running right now."
}

func resetMessage() string {
	return "Something went wrong with the previous task, so I dropped it. Please start over."
}

// helpText lists the agents and the keywords the state machine understands.
func helpText(catalog *agents.Catalog) string {
	var b strings.Builder
	b.WriteString("I can run these for you:\n")
	for _, p := range catalog.All() {
		fmt.Fprintf(&b, "  %s - %s", p.Name, p.Label)
		if p.Example != "" {
			fmt.Fprintf(&b, " (e.g. %q)", p.Example)
		}
		b.WriteString("\n")
	}
	b.WriteString("While a task runs: \"cancel\" stops it, \"finalize\" accepts a checkpoint, \"other options\" goes back one checkpoint.")
	return b.String()
}

// formatDuration renders a duration in the coarsest useful unit.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm%ds", m, s)
}

func formatTimeRange(low, high time.Duration) string {
	if low == high {
		return formatDuration(low)
	}
	return formatDuration(low) + " to " + formatDuration(high)
}

func formatJPY(v float64) string {
	if v < 10 {
		return fmt.Sprintf("¥%.1f", v)
	}
	return fmt.Sprintf("¥%.0f", v)
}

func formatCostRange(low, high float64) string {
	if low == high {
		return formatJPY(low)
	}
	return formatJPY(low) + " to " + formatJPY(high)
}
