package ledger

import (
	"fmt"
	"time"

	"github.com/yamagen/frontdesk/pkg/models"
)

// Estimate produces a time/cost range for the agent from its recorded
// history. With no usable history (empty, or the store is unreadable) the
// configured fallback is returned unchanged; estimation never fails a
// request. Bounds use min-max framing, so they always lie on recorded values.
func (l *Ledger) Estimate(agent string, fallback models.Estimate) models.Estimate {
	records, err := l.store.ListByAgent(agent)
	if err != nil || len(records) == 0 {
		fb := fallback
		fb.SampleCount = 0
		if fb.Note == "" {
			fb.Note = "no history yet, using defaults"
		}
		return fb
	}

	minSec, maxSec := records[0].ElapsedSeconds, records[0].ElapsedSeconds
	minJPY, maxJPY := records[0].CostJPY, records[0].CostJPY
	for _, rec := range records[1:] {
		if rec.ElapsedSeconds < minSec {
			minSec = rec.ElapsedSeconds
		}
		if rec.ElapsedSeconds > maxSec {
			maxSec = rec.ElapsedSeconds
		}
		if rec.CostJPY < minJPY {
			minJPY = rec.CostJPY
		}
		if rec.CostJPY > maxJPY {
			maxJPY = rec.CostJPY
		}
	}

	return models.Estimate{
		TimeLow:     time.Duration(minSec) * time.Second,
		TimeHigh:    time.Duration(maxSec) * time.Second,
		CostLowJPY:  minJPY,
		CostHighJPY: maxJPY,
		SampleCount: len(records),
		Note:        fmt.Sprintf("based on %d past run(s)", len(records)),
	}
}
