package core

import "time"

// TaskStatus tracks a task through its lifecycle. Tasks are created
// pending by the planner and mutated only by the agent loop; they are
// never deleted, only moved between the completed and failed lists.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one unit of work derived from a goal.
type Task struct {
	ID                string
	Description       string
	Status            TaskStatus
	Dependencies      []string
	Priority          int
	EstimatedDuration time.Duration
}
