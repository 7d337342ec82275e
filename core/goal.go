package core

import "time"

// Priority ranks how urgently a goal should be pursued.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Goal is a user-supplied objective to be decomposed into tasks and
// pursued by an Agent. A Goal is immutable once created; each Pursue
// call owns its goal for the duration of the run.
type Goal struct {
	ID          string
	Description string
	Constraints []string
	Priority    Priority
	Deadline    *time.Time
}
