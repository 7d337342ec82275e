package planner

import "fmt"

// PlanRequestError reports that the completion capability itself
// failed. Fatal to a pursuit: no plan, no execution.
type PlanRequestError struct {
	GoalID string
	Err    error
}

func (e *PlanRequestError) Error() string {
	return fmt.Sprintf("plan request for goal %s failed: %v", e.GoalID, e.Err)
}

func (e *PlanRequestError) Unwrap() error { return e.Err }

// PlanParseError reports that the completion returned a payload that
// could not be parsed into a plan. Also fatal; the planner never
// retries on its own.
type PlanParseError struct {
	GoalID string
	Raw    string
	Err    error
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("plan for goal %s unparseable: %v", e.GoalID, e.Err)
}

func (e *PlanParseError) Unwrap() error { return e.Err }
