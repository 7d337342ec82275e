package core

import "time"

// Thought is one reasoning record produced per task attempt.
// Thoughts are append-only: the agent writes one before acting and
// never mutates it afterwards.
type Thought struct {
	TaskID     string
	Reasoning  string
	Action     string
	Expected   string
	Confidence float64 // [0,1]
	Timestamp  time.Time
}
