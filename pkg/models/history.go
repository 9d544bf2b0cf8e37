package models

import "time"

// HistoryRecord is one finalized task appended to an agent's append-only
// history. Records feed the estimator.
type HistoryRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`
	// Timestamp is when the task was finalized.
	Timestamp time.Time `json:"timestamp"`
	// Topic is the human-readable label for the task.
	Topic string `json:"topic"`
	// ElapsedSeconds is the wall-clock duration from start to finalization.
	ElapsedSeconds int64 `json:"elapsed_seconds"`
	// CostUSD is the final spend in US dollars.
	CostUSD float64 `json:"cost_usd"`
	// CostJPY is CostUSD converted at the configured fixed rate.
	CostJPY float64 `json:"cost_jpy"`
}
