// Package ledger is the cost/time accounting subsystem: it accumulates
// per-phase spend on a task, finalizes tasks into history records, and
// produces time/cost estimates from recorded history.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yamagen/frontdesk/pkg/models"
)

// ErrInvalidCost is returned when a phase reports a negative cost. The
// contribution is clamped to zero so a defective executor cannot shrink the
// ledger; the caller decides whether to log or escalate.
var ErrInvalidCost = errors.New("phase cost must be non-negative")

// DefaultJPYPerUSD is the fixed conversion rate used when none is configured.
const DefaultJPYPerUSD = 150.0

// HistorySink is the subset of the history store the ledger needs.
type HistorySink interface {
	Append(agent string, rec models.HistoryRecord) error
	ListByAgent(agent string) ([]models.HistoryRecord, error)
}

// Ledger tracks task spend and writes finalized runs to the history store.
type Ledger struct {
	store     HistorySink
	jpyPerUSD float64
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJPYRate overrides the USD-to-JPY conversion rate.
func WithJPYRate(rate float64) Option {
	return func(l *Ledger) {
		if rate > 0 {
			l.jpyPerUSD = rate
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger writing to the given history store.
func New(store HistorySink, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		jpyPerUSD: DefaultJPYPerUSD,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// JPYPerUSD returns the configured conversion rate.
func (l *Ledger) JPYPerUSD() float64 {
	return l.jpyPerUSD
}

// RecordPhaseCost adds usd to the task's running total and per-phase
// breakdown. A negative cost adds nothing and returns ErrInvalidCost;
// the total never decreases.
func (l *Ledger) RecordPhaseCost(task *models.Task, phase string, usd float64) error {
	if usd < 0 {
		return fmt.Errorf("phase %s reported %.6f: %w", phase, usd, ErrInvalidCost)
	}
	task.TotalCostUSD += usd
	if task.StepCosts == nil {
		task.StepCosts = make(map[string]float64)
	}
	task.StepCosts[phase] += usd
	return nil
}

// Finalize computes the task's elapsed time and final cost, appends a record
// to the agent's history, and returns the record.
func (l *Ledger) Finalize(task models.Task, topic string) (models.HistoryRecord, error) {
	now := l.now()
	rec := models.HistoryRecord{
		ID:             uuid.NewString(),
		Timestamp:      now,
		Topic:          topic,
		ElapsedSeconds: int64(now.Sub(task.StartTime).Seconds()),
		CostUSD:        task.TotalCostUSD,
		CostJPY:        task.TotalCostUSD * l.jpyPerUSD,
	}
	if err := l.store.Append(task.Agent, rec); err != nil {
		return rec, fmt.Errorf("finalize task %s: %w", task.ConversationID, err)
	}
	return rec, nil
}
