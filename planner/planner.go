// Package planner turns a goal into an ordered execution plan by
// asking the completion capability for a structured decomposition.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgeline/pursuit/core"
)

// Config controls the decomposition request.
type Config struct {
	// Model is the completion model identifier.
	Model string

	// Temperature for the decomposition call. Low values keep the
	// returned JSON stable.
	Temperature float64

	// MaxTokens is the response token budget.
	MaxTokens int64

	// MaxTasks caps how many tasks a plan may contain. Items past the
	// cap are dropped. Zero means no cap.
	MaxTasks int
}

// DefaultConfig returns sensible planner defaults.
var DefaultConfig = Config{
	Model:       "claude-sonnet-4-20250514",
	Temperature: 0.2,
	MaxTokens:   2048,
}

// Planner decomposes goals into execution plans.
type Planner struct {
	completer core.Completer
}

// New creates a Planner on top of the given completion capability.
func New(completer core.Completer) *Planner {
	return &Planner{completer: completer}
}

// planPayload is the JSON shape the completion capability must return.
type planPayload struct {
	Tasks []struct {
		Description      string `json:"description"`
		Priority         int    `json:"priority"`
		EstimatedMinutes int    `json:"estimated_minutes"`
		Dependencies     []int  `json:"dependencies"`
	} `json:"tasks"`
	Complexity string `json:"complexity"`
	Risk       string `json:"risk"`
}

// Decompose asks the completion capability to break the goal into
// tasks and normalizes the answer into an ExecutionPlan. Every task
// starts pending with a generated ID; dependency indices in the
// payload are remapped to those IDs.
//
// A transport failure surfaces as *PlanRequestError, a malformed
// payload as *PlanParseError. Neither is retried here; the caller
// decides whether to plan again.
func (p *Planner) Decompose(ctx context.Context, goal *core.Goal, cfg Config) (*core.ExecutionPlan, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultConfig.MaxTokens
	}

	req := &core.CompletionRequest{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Messages: []core.Message{
			{Role: "system", Content: decompositionSystemPrompt},
			{Role: "user", Content: buildGoalPrompt(goal)},
		},
	}

	text, err := p.completer.Complete(ctx, req)
	if err != nil {
		return nil, &PlanRequestError{GoalID: goal.ID, Err: err}
	}

	payload, err := parsePlanPayload(text)
	if err != nil {
		return nil, &PlanParseError{GoalID: goal.ID, Raw: text, Err: err}
	}

	if cfg.MaxTasks > 0 && len(payload.Tasks) > cfg.MaxTasks {
		payload.Tasks = payload.Tasks[:cfg.MaxTasks]
	}

	// First pass assigns IDs so dependency indices can be remapped.
	ids := make([]string, len(payload.Tasks))
	for i := range payload.Tasks {
		ids[i] = uuid.New().String()
	}

	tasks := make([]*core.Task, 0, len(payload.Tasks))
	for i, item := range payload.Tasks {
		var deps []string
		for _, di := range item.Dependencies {
			if di >= 0 && di < len(ids) && di != i {
				deps = append(deps, ids[di])
			}
		}
		priority := item.Priority
		if priority < 1 {
			priority = 1
		}
		if priority > 10 {
			priority = 10
		}
		tasks = append(tasks, &core.Task{
			ID:                ids[i],
			Description:       item.Description,
			Status:            core.TaskPending,
			Dependencies:      deps,
			Priority:          priority,
			EstimatedDuration: time.Duration(item.EstimatedMinutes) * time.Minute,
		})
	}

	plan := &core.ExecutionPlan{
		ID:         uuid.New().String(),
		GoalID:     goal.ID,
		Tasks:      tasks,
		Complexity: normalizeComplexity(payload.Complexity),
		Risk:       normalizeRisk(payload.Risk),
		CreatedAt:  time.Now(),
	}

	log.Printf("[PLANNER] Decomposed goal %s into %d tasks (complexity=%s, risk=%s)",
		goal.ID, len(plan.Tasks), plan.Complexity, plan.Risk)

	return plan, nil
}

// parsePlanPayload extracts and validates the JSON decomposition.
// Models frequently wrap JSON in code fences, so those are stripped.
func parsePlanPayload(text string) (*planPayload, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Fall back to the outermost object if extra prose surrounds it.
	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in response")
		}
		cleaned = cleaned[start : end+1]
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if len(payload.Tasks) == 0 {
		return nil, fmt.Errorf("plan contains no tasks")
	}
	for i, item := range payload.Tasks {
		if strings.TrimSpace(item.Description) == "" {
			return nil, fmt.Errorf("task %d has empty description", i)
		}
	}
	return &payload, nil
}

func normalizeComplexity(s string) core.Complexity {
	switch core.Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case core.ComplexitySimple:
		return core.ComplexitySimple
	case core.ComplexityComplex:
		return core.ComplexityComplex
	case core.ComplexityExtreme:
		return core.ComplexityExtreme
	default:
		return core.ComplexityModerate
	}
}

func normalizeRisk(s string) core.Risk {
	switch core.Risk(strings.ToLower(strings.TrimSpace(s))) {
	case core.RiskLow:
		return core.RiskLow
	case core.RiskHigh:
		return core.RiskHigh
	default:
		return core.RiskMedium
	}
}

// buildGoalPrompt renders the goal for the decomposition request.
func buildGoalPrompt(goal *core.Goal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal.Description)
	fmt.Fprintf(&b, "Priority: %s\n", goal.Priority)
	if goal.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", goal.Deadline.Format(time.RFC3339))
	}
	if len(goal.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range goal.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("\nDecompose this goal into ordered tasks.")
	return b.String()
}

const decompositionSystemPrompt = `You are a task planner. Decompose the user's goal into concrete, ordered tasks.

Respond with ONLY a JSON object, no prose, in exactly this shape:
{
  "tasks": [
    {
      "description": "what to do",
      "priority": 5,
      "estimated_minutes": 10,
      "dependencies": [0]
    }
  ],
  "complexity": "simple|moderate|complex|extreme",
  "risk": "low|medium|high"
}

Rules:
- priority is 1-10 (10 = most important)
- dependencies are zero-based indices into the tasks array
- keep tasks small and independently verifiable`
