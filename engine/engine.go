// Package engine runs the pursuit loop: plan a goal, work through the
// plan task by task, and fold failures through the correction engine
// until the run reaches a terminal state.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/forgeline/pursuit/core"
	"github.com/forgeline/pursuit/correction"
	"github.com/forgeline/pursuit/memory"
	"github.com/forgeline/pursuit/planner"
)

// AgentState is where a run currently is in its lifecycle.
type AgentState string

const (
	StateIdle       AgentState = "idle"
	StatePlanning   AgentState = "planning"
	StateExecuting  AgentState = "executing"
	StateReflecting AgentState = "reflecting"
	StateCompleted  AgentState = "completed"
	StateFailed     AgentState = "failed"
)

// Config controls a pursuit run.
type Config struct {
	// MaxIterations bounds the execution loop. Default: 50.
	MaxIterations int

	// StepDelay is an optional pause between iterations.
	StepDelay time.Duration

	// Timeout bounds the whole pursuit. Zero means no deadline beyond
	// the caller's context.
	Timeout time.Duration

	// EnableReflection adds a reflection pass after execution.
	EnableReflection bool

	// StrictDependencies gates each task on its dependencies having
	// completed. When false tasks run in plan order regardless.
	StrictDependencies bool

	// Planner configures goal decomposition.
	Planner planner.Config
}

// DefaultConfig returns agent defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 50,
		Planner:       planner.DefaultConfig,
	}
}

// Agent pursues goals: it plans, executes, and recovers.
type Agent struct {
	planner    *planner.Planner
	registry   *ToolRegistry
	correction *correction.Engine
	reasoner   Reasoner
	memory     *memory.Store
	metrics    Metrics
	observer   Observer
	config     Config
}

// Option configures an Agent.
type Option func(*Agent)

// WithMemory attaches a memory store; thoughts and task outcomes are
// recorded into it as they happen.
func WithMemory(store *memory.Store) Option {
	return func(a *Agent) { a.memory = store }
}

// WithCorrection supplies a shared correction engine. Without it the
// agent builds its own with default settings.
func WithCorrection(engine *correction.Engine) Option {
	return func(a *Agent) { a.correction = engine }
}

// WithReasoner replaces the stub reasoner.
func WithReasoner(r Reasoner) Option {
	return func(a *Agent) { a.reasoner = r }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithObserver attaches an event consumer.
func WithObserver(o Observer) Option {
	return func(a *Agent) { a.observer = o }
}

// NewAgent creates an agent around a planner and a tool registry.
// A nil registry gets an empty one; tasks whose action has no
// registered tool fall through to the default success handler.
func NewAgent(p *planner.Planner, registry *ToolRegistry, config Config, opts ...Option) *Agent {
	if config.MaxIterations <= 0 {
		config.MaxIterations = 50
	}
	a := &Agent{
		planner:  p,
		registry: registry,
		reasoner: stubReasoner{},
		metrics:  nopMetrics{},
		config:   config,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = NewToolRegistry()
	}
	if a.correction == nil {
		a.correction = correction.NewEngine(nil)
	}
	return a
}

// Result is everything a finished run produced.
type Result struct {
	RunID      string
	GoalID     string
	State      AgentState
	Plan       *core.ExecutionPlan
	Thoughts   []*core.Thought
	Completed  []*core.Task
	Failed     []*core.Task
	Iterations int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pursue plans the goal and executes the plan until every task is
// resolved, the iteration budget runs out, or the context ends. The
// returned Result always carries a terminal state; task failures are
// reported through it, not through the error return. The error return
// is reserved for planning failures and context cancellation.
func (a *Agent) Pursue(ctx context.Context, goal *core.Goal) (*Result, error) {
	if goal == nil {
		return nil, fmt.Errorf("pursue: goal is nil")
	}
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}

	res := &Result{
		RunID:     uuid.New().String(),
		GoalID:    goal.ID,
		State:     StateIdle,
		StartedAt: time.Now(),
	}
	endSpan := a.metrics.Span("pursuit")
	defer endSpan()
	defer func() {
		res.FinishedAt = time.Now()
		a.metrics.Timing("pursuit.duration", res.FinishedAt.Sub(res.StartedAt))
	}()

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	log.Printf("[AGENT] Run %s pursuing goal %s: %s", res.RunID, goal.ID, goal.Description)

	a.setState(res, StatePlanning)
	plan, err := a.planner.Decompose(ctx, goal, a.config.Planner)
	if err != nil {
		a.setState(res, StateFailed)
		return res, fmt.Errorf("plan goal %s: %w", goal.ID, err)
	}
	res.Plan = plan
	a.metrics.Count("pursuit.tasks_planned", int64(len(plan.Tasks)))
	a.emit(Event{
		Type: EventPlanReady, RunID: res.RunID, GoalID: goal.ID,
		Detail: fmt.Sprintf("%d tasks, complexity=%s, risk=%s", len(plan.Tasks), plan.Complexity, plan.Risk),
	})

	a.setState(res, StateExecuting)
	for res.Iterations < a.config.MaxIterations {
		if err := ctx.Err(); err != nil {
			a.setState(res, StateFailed)
			return res, fmt.Errorf("pursuit of goal %s interrupted: %w", goal.ID, err)
		}

		task := a.nextTask(plan)
		if task == nil {
			break
		}

		res.Iterations++
		a.step(ctx, res, goal, task)

		if a.config.StepDelay > 0 {
			if err := sleep(ctx, a.config.StepDelay); err != nil {
				a.setState(res, StateFailed)
				return res, fmt.Errorf("pursuit of goal %s interrupted: %w", goal.ID, err)
			}
		}
	}

	a.failUnresolved(res, plan)

	if a.config.EnableReflection {
		a.setState(res, StateReflecting)
		a.reflect(ctx, res)
	}

	if len(res.Failed) == 0 {
		a.setState(res, StateCompleted)
	} else {
		a.setState(res, StateFailed)
	}
	log.Printf("[AGENT] Run %s finished %s: %d completed, %d failed, %d iterations",
		res.RunID, res.State, len(res.Completed), len(res.Failed), res.Iterations)
	return res, nil
}

// step runs one think-act-resolve cycle for a task.
func (a *Agent) step(ctx context.Context, res *Result, goal *core.Goal, task *core.Task) {
	task.Status = core.TaskInProgress

	thought, err := a.reasoner.Think(ctx, goal, task)
	if err != nil {
		log.Printf("[AGENT] Reasoner failed for task %s: %v", task.ID, err)
		a.resolveFailure(ctx, res, goal, task, fmt.Sprintf("reasoning failed: %v", err))
		return
	}
	res.Thoughts = append(res.Thoughts, thought)
	a.remember(ctx, memory.KindEpisodic, thought.Reasoning, map[string]interface{}{
		"task_id": task.ID, "goal_id": goal.ID, "confidence": thought.Confidence,
	})
	a.emit(Event{Type: EventThought, RunID: res.RunID, GoalID: goal.ID, TaskID: task.ID, Thought: thought})

	started := time.Now()
	outcome, actErr := a.act(ctx, goal, task, thought)
	a.metrics.Timing("pursuit.action", time.Since(started))

	if actErr != nil {
		a.resolveFailure(ctx, res, goal, task, actErr.Error())
		return
	}
	if outcome != nil && !outcome.Success {
		a.resolveFailure(ctx, res, goal, task, outcome.Error)
		return
	}

	task.Status = core.TaskCompleted
	res.Completed = append(res.Completed, task)
	a.correction.RecordSuccess(task.ID)
	a.metrics.Count("pursuit.tasks_completed", 1)
	a.remember(ctx, memory.KindProcedural,
		fmt.Sprintf("Completed task: %s", task.Description),
		map[string]interface{}{"task_id": task.ID, "goal_id": goal.ID})
	a.emit(Event{Type: EventTaskCompleted, RunID: res.RunID, GoalID: goal.ID, TaskID: task.ID})
}

// act runs the tool the thought names, or the default success handler
// when no such tool is registered.
func (a *Agent) act(ctx context.Context, goal *core.Goal, task *core.Task, thought *core.Thought) (*core.ToolResult, error) {
	tool, ok := a.registry.Get(thought.Action)
	if !ok {
		log.Printf("[AGENT] No tool for action %q, task %s resolved by default handler", thought.Action, task.ID)
		return &core.ToolResult{Success: true, Data: "resolved by default handler"}, nil
	}
	endSpan := a.metrics.Span("tool." + thought.Action)
	defer endSpan()
	return tool.Execute(ctx, &core.ToolParams{
		TaskID:  task.ID,
		GoalID:  goal.ID,
		Thought: thought.Reasoning,
	})
}

// resolveFailure consults the correction engine and either requeues
// the task for another attempt or marks it failed for good.
func (a *Agent) resolveFailure(ctx context.Context, res *Result, goal *core.Goal, task *core.Task, errText string) {
	a.correction.RecordFailure(task.ID)
	c := a.correction.Correct(task.ID, errText, map[string]string{"goal_id": goal.ID})

	if c.ShouldRetry {
		log.Printf("[AGENT] Task %s failed (%s), retrying via %s", task.ID, errText, c.Strategy.Kind)
		a.metrics.Count("pursuit.tasks_retried", 1)
		task.Status = core.TaskPending
		if c.Strategy.Delay > 0 {
			if err := sleep(ctx, c.Strategy.Delay); err != nil {
				return // loop header notices the dead context
			}
		}
		return
	}

	log.Printf("[AGENT] Task %s failed terminally (%s): %s", task.ID, c.Strategy.Kind, errText)
	task.Status = core.TaskFailed
	res.Failed = append(res.Failed, task)
	a.metrics.Count("pursuit.tasks_failed", 1)
	a.remember(ctx, memory.KindEpisodic,
		fmt.Sprintf("Task failed: %s. Error: %s", task.Description, errText),
		map[string]interface{}{"task_id": task.ID, "goal_id": goal.ID})
	a.emit(Event{Type: EventTaskFailed, RunID: res.RunID, GoalID: goal.ID, TaskID: task.ID, Error: errText})
}

// nextTask picks the first pending task in plan order. With strict
// dependencies a task is eligible only once everything it depends on
// has completed.
func (a *Agent) nextTask(plan *core.ExecutionPlan) *core.Task {
	for _, task := range plan.Tasks {
		if task.Status != core.TaskPending {
			continue
		}
		if a.config.StrictDependencies && !a.dependenciesMet(plan, task) {
			continue
		}
		return task
	}
	return nil
}

func (a *Agent) dependenciesMet(plan *core.ExecutionPlan, task *core.Task) bool {
	for _, depID := range task.Dependencies {
		met := false
		for _, other := range plan.Tasks {
			if other.ID == depID {
				met = other.Status == core.TaskCompleted
				break
			}
		}
		if !met {
			return false
		}
	}
	return true
}

// failUnresolved marks tasks still pending after the execution loop as
// failed. They are either blocked behind a failed dependency or were
// starved by the iteration budget; neither resolves on its own.
func (a *Agent) failUnresolved(res *Result, plan *core.ExecutionPlan) {
	for _, task := range plan.Tasks {
		if task.Status != core.TaskPending {
			continue
		}
		task.Status = core.TaskFailed
		res.Failed = append(res.Failed, task)
		a.metrics.Count("pursuit.tasks_failed", 1)
		a.emit(Event{
			Type: EventTaskFailed, RunID: res.RunID, GoalID: res.GoalID, TaskID: task.ID,
			Error: "unresolved at end of run",
		})
	}
}

// reflect summarizes the run into memory so later goals can search it.
func (a *Agent) reflect(ctx context.Context, res *Result) {
	summary := fmt.Sprintf("Pursuit of goal %s: %d of %d tasks completed",
		res.GoalID, len(res.Completed), len(res.Plan.Tasks))
	a.remember(ctx, memory.KindSemantic, summary, map[string]interface{}{
		"run_id": res.RunID, "goal_id": res.GoalID,
	})
	a.emit(Event{Type: EventReflection, RunID: res.RunID, GoalID: res.GoalID, Detail: summary})
}

// remember stores content when a memory store is attached.
func (a *Agent) remember(ctx context.Context, kind memory.Kind, content string, metadata map[string]interface{}) {
	if a.memory == nil {
		return
	}
	entry, err := a.memory.Store(ctx, content, kind, metadata)
	if err != nil {
		log.Printf("[AGENT] Failed to store memory: %v", err)
		return
	}
	a.memory.AddToWorkingMemory(entry)
}

func (a *Agent) setState(res *Result, state AgentState) {
	res.State = state
	a.emit(Event{Type: EventStateChanged, RunID: res.RunID, GoalID: res.GoalID, State: state})
}

func (a *Agent) emit(ev Event) {
	if a.observer == nil {
		return
	}
	ev.Timestamp = time.Now()
	a.observer.OnEvent(ev)
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
