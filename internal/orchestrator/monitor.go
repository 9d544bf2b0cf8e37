package orchestrator

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"

	"github.com/yamagen/frontdesk/pkg/models"
)

// Monitor observes task transitions for operator display.
type Monitor interface {
	// Update is called after every state transition with the task's new copy.
	Update(task models.Task)
	// Remove is called when a task leaves the registry.
	Remove(conversationID string)
	// Note reports a non-fatal operational problem.
	Note(text string)
}

// NopMonitor discards all updates.
type NopMonitor struct{}

func (NopMonitor) Update(models.Task) {}
func (NopMonitor) Remove(string)      {}
func (NopMonitor) Note(string)        {}

// TerminalMonitor renders the active task table in place on a terminal,
// redrawing its block on every update.
type TerminalMonitor struct {
	mu    sync.Mutex
	w     io.Writer
	tasks map[string]models.Task
	lines int
}

// NewTerminalMonitor creates a monitor writing to w.
func NewTerminalMonitor(w io.Writer) *TerminalMonitor {
	return &TerminalMonitor{w: w, tasks: make(map[string]models.Task)}
}

// Update implements Monitor.
func (m *TerminalMonitor) Update(task models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ConversationID] = task
	m.render()
}

// Remove implements Monitor.
func (m *TerminalMonitor) Remove(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, conversationID)
	m.render()
}

// Note implements Monitor.
func (m *TerminalMonitor) Note(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
	fmt.Fprintf(m.w, "%s %s\n", color.YellowString("⚠"), text)
	m.lines = 0
	m.render()
}

// clear erases the previously drawn block.
func (m *TerminalMonitor) clear() {
	for i := 0; i < m.lines; i++ {
		fmt.Fprint(m.w, "\033[1A\033[2K")
	}
}

func (m *TerminalMonitor) render() {
	m.clear()

	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		t := m.tasks[id]
		fmt.Fprintf(m.w, "%s %-10s %-22s $%.4f\n", stateGlyph(t.State), t.Agent, t.State, t.TotalCostUSD)
	}
	m.lines = len(ids)
}

func stateGlyph(s models.State) string {
	switch s.Kind {
	case models.StateExecuting:
		return color.YellowString("▶")
	case models.StateReview:
		return color.CyanString("⏸")
	case models.StateCompleted:
		return color.GreenString("✓")
	case models.StateCancelled, models.StateErrored:
		return color.RedString("✗")
	default:
		return color.WhiteString("·")
	}
}
