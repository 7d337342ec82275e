package planner_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forgeline/pursuit/core"
	"github.com/forgeline/pursuit/planner"
)

// scriptedCompleter returns a fixed response or error.
type scriptedCompleter struct {
	response string
	err      error
	lastReq  *core.CompletionRequest
}

func (s *scriptedCompleter) Complete(ctx context.Context, req *core.CompletionRequest) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const validPlan = `{
  "tasks": [
    {"description": "research keywords", "priority": 8, "estimated_minutes": 15, "dependencies": []},
    {"description": "draft outline", "priority": 6, "estimated_minutes": 20, "dependencies": [0]},
    {"description": "write article", "priority": 9, "estimated_minutes": 45, "dependencies": [1]}
  ],
  "complexity": "moderate",
  "risk": "low"
}`

func testGoal() *core.Goal {
	return &core.Goal{
		ID:          "goal-1",
		Description: "Publish an article about Go testing",
		Constraints: []string{"under 2000 words"},
		Priority:    core.PriorityHigh,
	}
}

func TestDecompose(t *testing.T) {
	completer := &scriptedCompleter{response: validPlan}
	p := planner.New(completer)

	plan, err := p.Decompose(context.Background(), testGoal(), planner.DefaultConfig)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if len(plan.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(plan.Tasks))
	}
	if plan.GoalID != "goal-1" {
		t.Errorf("expected goal ID goal-1, got %s", plan.GoalID)
	}
	if plan.Complexity != core.ComplexityModerate {
		t.Errorf("expected moderate complexity, got %s", plan.Complexity)
	}
	if plan.Risk != core.RiskLow {
		t.Errorf("expected low risk, got %s", plan.Risk)
	}

	for i, task := range plan.Tasks {
		if task.ID == "" {
			t.Errorf("task %d has no ID", i)
		}
		if task.Status != core.TaskPending {
			t.Errorf("task %d should start pending, got %s", i, task.Status)
		}
	}

	// Dependency indices are remapped to generated IDs.
	if len(plan.Tasks[1].Dependencies) != 1 || plan.Tasks[1].Dependencies[0] != plan.Tasks[0].ID {
		t.Errorf("task 1 should depend on task 0's ID, got %v", plan.Tasks[1].Dependencies)
	}
	if plan.Tasks[2].EstimatedDuration != 45*time.Minute {
		t.Errorf("expected 45m estimate, got %s", plan.Tasks[2].EstimatedDuration)
	}
}

func TestDecompose_CodeFencedResponse(t *testing.T) {
	completer := &scriptedCompleter{response: "```json\n" + validPlan + "\n```"}
	p := planner.New(completer)

	plan, err := p.Decompose(context.Background(), testGoal(), planner.Config{})
	if err != nil {
		t.Fatalf("Decompose should tolerate code fences: %v", err)
	}
	if len(plan.Tasks) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(plan.Tasks))
	}
}

func TestDecompose_RequestError(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("connection refused")}
	p := planner.New(completer)

	_, err := p.Decompose(context.Background(), testGoal(), planner.Config{})
	var reqErr *planner.PlanRequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected PlanRequestError, got %v", err)
	}
	if reqErr.GoalID != "goal-1" {
		t.Errorf("expected goal ID in error, got %s", reqErr.GoalID)
	}
}

func TestDecompose_ParseError(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not json", "I cannot help with that."},
		{"empty tasks", `{"tasks": [], "complexity": "simple", "risk": "low"}`},
		{"blank description", `{"tasks": [{"description": "  "}], "complexity": "simple", "risk": "low"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := planner.New(&scriptedCompleter{response: tc.response})
			_, err := p.Decompose(context.Background(), testGoal(), planner.Config{})
			var parseErr *planner.PlanParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected PlanParseError, got %v", err)
			}
		})
	}
}

func TestDecompose_MaxTasks(t *testing.T) {
	p := planner.New(&scriptedCompleter{response: validPlan})
	plan, err := p.Decompose(context.Background(), testGoal(), planner.Config{MaxTasks: 2})
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(plan.Tasks) != 2 {
		t.Errorf("expected cap at 2 tasks, got %d", len(plan.Tasks))
	}
}

func TestDecompose_PriorityClamped(t *testing.T) {
	response := `{"tasks": [
		{"description": "a", "priority": 0},
		{"description": "b", "priority": 99}
	], "complexity": "simple", "risk": "low"}`
	p := planner.New(&scriptedCompleter{response: response})

	plan, err := p.Decompose(context.Background(), testGoal(), planner.Config{})
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if plan.Tasks[0].Priority != 1 {
		t.Errorf("priority 0 should clamp to 1, got %d", plan.Tasks[0].Priority)
	}
	if plan.Tasks[1].Priority != 10 {
		t.Errorf("priority 99 should clamp to 10, got %d", plan.Tasks[1].Priority)
	}
}

func TestDecompose_GoalRenderedInRequest(t *testing.T) {
	completer := &scriptedCompleter{response: validPlan}
	p := planner.New(completer)

	if _, err := p.Decompose(context.Background(), testGoal(), planner.Config{}); err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if completer.lastReq == nil || len(completer.lastReq.Messages) != 2 {
		t.Fatal("expected system + user message")
	}
	user := completer.lastReq.Messages[1].Content
	for _, want := range []string{"Publish an article", "under 2000 words", "high"} {
		if !strings.Contains(user, want) {
			t.Errorf("user message missing %q:\n%s", want, user)
		}
	}
}
