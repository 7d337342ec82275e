package core

import "time"

// Complexity classifies how involved a plan is, as judged by the
// completion capability during decomposition.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityExtreme  Complexity = "extreme"
)

// Risk classifies how likely a plan is to go sideways.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// ExecutionPlan is the ordered task list derived from one goal.
// The plan itself is immutable after creation; only the tasks' own
// status fields change as the agent works through them.
type ExecutionPlan struct {
	ID         string
	GoalID     string
	Tasks      []*Task
	Complexity Complexity
	Risk       Risk
	CreatedAt  time.Time
}
