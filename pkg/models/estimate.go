package models

import "time"

// Estimate is a forward-looking time/cost range for running an agent,
// derived from history when available.
type Estimate struct {
	// TimeLow and TimeHigh bound the expected wall-clock duration.
	TimeLow  time.Duration `json:"time_low"`
	TimeHigh time.Duration `json:"time_high"`
	// CostLowJPY and CostHighJPY bound the expected spend in yen.
	CostLowJPY  float64 `json:"cost_low_jpy"`
	CostHighJPY float64 `json:"cost_high_jpy"`
	// SampleCount is the number of history records behind the estimate.
	// Zero means the estimate is a configured default.
	SampleCount int `json:"sample_count"`
	// Note explains the basis of the estimate ("based on 4 runs", "first run").
	Note string `json:"note,omitempty"`
}
