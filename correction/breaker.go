package correction

import (
	"log"
	"time"
)

// BreakerState is a circuit breaker position.
type BreakerState string

const (
	// BreakerClosed lets attempts through. The starting state.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen blocks attempts until the cooldown elapses.
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen lets attempts through on probation; enough
	// successes close the breaker again.
	BreakerHalfOpen BreakerState = "half-open"
)

// breaker is the per-task circuit breaker. Guarded by the engine
// mutex.
type breaker struct {
	state             BreakerState
	failures          int
	lastFailure       time.Time
	halfOpenSuccesses int
	cooldownTimer     *time.Timer
}

// breakerLocked returns the task's breaker, creating a closed one on
// first use. Callers hold e.mu.
func (e *Engine) breakerLocked(taskID string) *breaker {
	br, ok := e.breakers[taskID]
	if !ok {
		br = &breaker{state: BreakerClosed}
		e.breakers[taskID] = br
	}
	return br
}

// RecordFailure counts a failure against the task's breaker. Reaching
// the threshold opens the breaker and schedules the half-open flip
// after the cooldown.
func (e *Engine) RecordFailure(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordFailureLocked(taskID)
}

func (e *Engine) recordFailureLocked(taskID string) {
	br := e.breakerLocked(taskID)
	br.failures++
	br.lastFailure = time.Now()

	// A failure during probation reopens immediately.
	if br.state == BreakerHalfOpen {
		br.halfOpenSuccesses = 0
		e.openLocked(taskID, br)
		return
	}

	if br.state == BreakerClosed && br.failures >= e.config.BreakerThreshold {
		e.openLocked(taskID, br)
	}
}

// openLocked transitions the breaker to open and schedules the
// half-open flip.
func (e *Engine) openLocked(taskID string, br *breaker) {
	br.state = BreakerOpen
	log.Printf("[CORRECT] Task %s breaker opened after %d failures", taskID, br.failures)

	if br.cooldownTimer != nil {
		br.cooldownTimer.Stop()
	}
	br.cooldownTimer = time.AfterFunc(e.config.BreakerCooldown, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if br.state == BreakerOpen {
			br.state = BreakerHalfOpen
			br.halfOpenSuccesses = 0
			log.Printf("[CORRECT] Task %s breaker half-open", taskID)
		}
	})
}

// RecordSuccess marks the task's most recent attempt successful. While
// half-open it also counts toward closing the breaker; enough
// successes reset it to closed with a zeroed failure counter. In any
// other state it has no breaker effect.
func (e *Engine) RecordSuccess(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if history := e.attempts[taskID]; len(history) > 0 {
		history[len(history)-1].Success = true
	}

	br := e.breakerLocked(taskID)
	if br.state != BreakerHalfOpen {
		return
	}
	br.halfOpenSuccesses++
	if br.halfOpenSuccesses >= e.config.HalfOpenSuccesses {
		br.state = BreakerClosed
		br.failures = 0
		br.halfOpenSuccesses = 0
		log.Printf("[CORRECT] Task %s breaker closed", taskID)
	}
}

// BreakerState reports the task's current breaker state.
func (e *Engine) BreakerState(taskID string) BreakerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breakerLocked(taskID).state
}
