// Package models defines the shared data model for frontdesk.
package models

import "time"

// Task is one multi-phase workflow instance bound to a single conversation.
// At most one Task exists per conversation ID at any time; all mutation goes
// through the registry.
type Task struct {
	// ConversationID is the unique key into the task registry.
	ConversationID string `json:"conversation_id"`
	// Agent is the name of the agent handling this task.
	Agent string `json:"agent"`
	// State is the current position in the phase state machine.
	State State `json:"state"`
	// Channel is the destination for outbound messages. Immutable after creation.
	Channel string `json:"channel"`
	// StartTime is when the task was created. Immutable.
	StartTime time.Time `json:"start_time"`
	// TotalCostUSD is the running spend across phases. Monotonically non-decreasing.
	TotalCostUSD float64 `json:"total_cost_usd"`
	// StepCosts breaks TotalCostUSD down by phase name.
	StepCosts map[string]float64 `json:"step_costs,omitempty"`
	// Payload maps phase names to the intermediate artifacts they produced.
	Payload map[string]string `json:"payload,omitempty"`
	// Topic is the human-readable label for the task.
	Topic string `json:"topic,omitempty"`
	// Hint carries the user's free-text instructions for the executor.
	Hint string `json:"hint,omitempty"`
	// OriginalMessage is the first request text, kept for the clarification loop.
	OriginalMessage string `json:"original_message,omitempty"`
}

// Clone returns a deep copy of the task. The registry hands out clones so
// callers can never mutate a live entry outside its lock.
func (t Task) Clone() Task {
	c := t
	if t.StepCosts != nil {
		c.StepCosts = make(map[string]float64, len(t.StepCosts))
		for k, v := range t.StepCosts {
			c.StepCosts[k] = v
		}
	}
	if t.Payload != nil {
		c.Payload = make(map[string]string, len(t.Payload))
		for k, v := range t.Payload {
			c.Payload[k] = v
		}
	}
	return c
}

// Elapsed returns the wall-clock duration since the task started.
func (t Task) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.StartTime)
}
