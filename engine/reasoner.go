package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeline/pursuit/core"
)

// Reasoner produces a thought for the task the agent is about to act
// on. The thought's Action selects which registered tool runs.
type Reasoner interface {
	Think(ctx context.Context, goal *core.Goal, task *core.Task) (*core.Thought, error)
}

// DefaultAction is the action name the stub reasoner emits. Register a
// tool under this name to handle tasks when no custom reasoner is set.
const DefaultAction = "execute"

// stubReasoner always proposes executing the task directly. It stands
// in until a model-backed reasoner is wired via WithReasoner.
type stubReasoner struct{}

func (stubReasoner) Think(_ context.Context, _ *core.Goal, task *core.Task) (*core.Thought, error) {
	return &core.Thought{
		TaskID:     task.ID,
		Reasoning:  fmt.Sprintf("Executing task: %s", task.Description),
		Action:     DefaultAction,
		Expected:   "task completes successfully",
		Confidence: 0.7,
		Timestamp:  time.Now(),
	}, nil
}
