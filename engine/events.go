package engine

import (
	"time"

	"github.com/forgeline/pursuit/core"
)

// EventType identifies what happened during a pursuit.
type EventType string

const (
	EventStateChanged  EventType = "state_changed"
	EventPlanReady     EventType = "plan_ready"
	EventThought       EventType = "thought"
	EventTaskCompleted EventType = "task_completed"
	EventTaskFailed    EventType = "task_failed"
	EventReflection    EventType = "reflection"
)

// Event is a single occurrence within a run, suitable for streaming
// to external consumers.
type Event struct {
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id"`
	GoalID    string        `json:"goal_id,omitempty"`
	TaskID    string        `json:"task_id,omitempty"`
	State     AgentState    `json:"state,omitempty"`
	Thought   *core.Thought `json:"thought,omitempty"`
	Error     string        `json:"error,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Observer receives events as they occur. OnEvent must not block for
// long; slow consumers should buffer internally.
type Observer interface {
	OnEvent(ev Event)
}
