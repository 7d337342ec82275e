// Package correction classifies task failures and recommends recovery
// strategies, guarded by per-task circuit breakers so the agent stops
// retrying tasks that keep failing.
package correction

import (
	"log"
	"regexp"
	"sync"
	"time"
)

// StrategyKind is the recovery approach a correction recommends.
type StrategyKind string

const (
	// StrategyRetry repeats the same action, optionally after a delay.
	StrategyRetry StrategyKind = "retry"

	// StrategyAlternative tries a different approach to the same task.
	StrategyAlternative StrategyKind = "alternative"

	// StrategyDecompose splits the task into smaller pieces.
	StrategyDecompose StrategyKind = "decompose"

	// StrategyEscalate gives up and surfaces the failure.
	StrategyEscalate StrategyKind = "escalate"

	// StrategySkip abandons the task without escalation.
	StrategySkip StrategyKind = "skip"
)

// Strategy is a recommended recovery with fixed parameters.
type Strategy struct {
	Kind        StrategyKind
	Confidence  float64
	MaxRetries  int
	Delay       time.Duration
	Exponential bool
	Reason      string
}

// Correction is the outcome of one Correct call.
type Correction struct {
	Strategy    Strategy
	ShouldRetry bool
}

// Attempt is one recorded correction attempt for a task. Append-only.
type Attempt struct {
	TaskID    string
	Error     string
	Strategy  StrategyKind
	Success   bool
	Timestamp time.Time
	Learnings string
}

// Config holds correction engine tuning knobs.
type Config struct {
	// MaxAttemptsPerTask caps corrections per task before escalation.
	// Default: 3.
	MaxAttemptsPerTask int

	// BreakerThreshold is how many recorded failures open a task's
	// circuit breaker. Default: 5.
	BreakerThreshold int

	// BreakerCooldown is how long an open breaker waits before
	// half-opening. Default: 60s.
	BreakerCooldown time.Duration

	// HalfOpenSuccesses is how many successes close a half-open
	// breaker. Default: 3.
	HalfOpenSuccesses int
}

// DefaultConfig returns engine defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttemptsPerTask: 3,
		BreakerThreshold:   5,
		BreakerCooldown:    60 * time.Second,
		HalfOpenSuccesses:  3,
	}
}

// errorPattern maps an error-text shape to its recommended strategy.
// The table is ordered; the first match wins.
type errorPattern struct {
	re       *regexp.Regexp
	strategy Strategy
}

var errorPatterns = []errorPattern{
	{
		re: regexp.MustCompile(`(?i)timeout|timed out|deadline exceeded`),
		strategy: Strategy{
			Kind: StrategyRetry, Confidence: 0.8,
			MaxRetries: 2, Delay: 2 * time.Second, Exponential: true,
			Reason: "transient timeout, retry with backoff",
		},
	},
	{
		re: regexp.MustCompile(`(?i)rate limit|too many requests|429`),
		strategy: Strategy{
			Kind: StrategyRetry, Confidence: 0.9,
			MaxRetries: 3, Delay: 30 * time.Second, Exponential: true,
			Reason: "rate limited, retry after a long pause",
		},
	},
	{
		re: regexp.MustCompile(`(?i)not found|does not exist|404`),
		strategy: Strategy{
			Kind: StrategyAlternative, Confidence: 0.7,
			Reason: "target missing, try a different approach",
		},
	},
	{
		re: regexp.MustCompile(`(?i)permission|unauthorized|forbidden|access denied`),
		strategy: Strategy{
			Kind: StrategyEscalate, Confidence: 0.9,
			Reason: "authorization failure, human intervention needed",
		},
	},
	{
		re: regexp.MustCompile(`(?i)too (?:complex|large|long)|complexity`),
		strategy: Strategy{
			Kind: StrategyDecompose, Confidence: 0.75,
			Reason: "task too large, split it up",
		},
	},
}

// fallbackStrategy is the low-confidence generic retry used when no
// pattern matches.
var fallbackStrategy = Strategy{
	Kind: StrategyRetry, Confidence: 0.3,
	MaxRetries: 1, Delay: time.Second,
	Reason: "unclassified error, single cautious retry",
}

// Engine tracks per-task attempt history and circuit breakers. One
// engine instance may serve concurrent agent runs; all per-task
// mutation is atomic under the engine mutex.
type Engine struct {
	mu       sync.Mutex
	config   *Config
	attempts map[string][]Attempt
	breakers map[string]*breaker
}

// NewEngine creates a correction engine.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttemptsPerTask <= 0 {
		config.MaxAttemptsPerTask = 3
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = 5
	}
	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = 60 * time.Second
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 3
	}
	return &Engine{
		config:   config,
		attempts: make(map[string][]Attempt),
		breakers: make(map[string]*breaker),
	}
}

// Correct classifies an error and recommends a recovery strategy.
//
// An open circuit breaker short-circuits to a terminal skip. A task
// past its attempt cap records a breaker failure and escalates.
// Otherwise the error text runs through the pattern table, first match
// wins, and the attempt is recorded (unsuccessful until the caller
// reports otherwise via RecordSuccess).
func (e *Engine) Correct(taskID, errorText string, context map[string]string) *Correction {
	e.mu.Lock()
	defer e.mu.Unlock()

	br := e.breakerLocked(taskID)
	if br.state == BreakerOpen {
		log.Printf("[CORRECT] Task %s breaker open, skipping", taskID)
		return &Correction{
			Strategy: Strategy{
				Kind: StrategySkip, Confidence: 1.0,
				Reason: "circuit breaker open",
			},
			ShouldRetry: false,
		}
	}

	if len(e.attempts[taskID]) >= e.config.MaxAttemptsPerTask {
		e.recordFailureLocked(taskID)
		log.Printf("[CORRECT] Task %s exceeded %d attempts, escalating", taskID, e.config.MaxAttemptsPerTask)
		return &Correction{
			Strategy: Strategy{
				Kind: StrategyEscalate, Confidence: 1.0,
				Reason: "attempt budget exhausted",
			},
			ShouldRetry: false,
		}
	}

	strategy := classify(errorText)

	e.attempts[taskID] = append(e.attempts[taskID], Attempt{
		TaskID:    taskID,
		Error:     errorText,
		Strategy:  strategy.Kind,
		Success:   false,
		Timestamp: time.Now(),
		Learnings: strategy.Reason,
	})

	shouldRetry := strategy.Kind != StrategyEscalate && strategy.Kind != StrategySkip
	log.Printf("[CORRECT] Task %s: %s (confidence=%.2f, retry=%t)",
		taskID, strategy.Kind, strategy.Confidence, shouldRetry)

	return &Correction{Strategy: strategy, ShouldRetry: shouldRetry}
}

// classify runs the error text through the ordered pattern table.
func classify(errorText string) Strategy {
	for _, p := range errorPatterns {
		if p.re.MatchString(errorText) {
			return p.strategy
		}
	}
	return fallbackStrategy
}

// Attempts returns a copy of the task's attempt history.
func (e *Engine) Attempts(taskID string) []Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Attempt(nil), e.attempts[taskID]...)
}

// Close clears all attempt and breaker state and cancels pending
// cooldown timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, br := range e.breakers {
		if br.cooldownTimer != nil {
			br.cooldownTimer.Stop()
		}
	}
	e.attempts = make(map[string][]Attempt)
	e.breakers = make(map[string]*breaker)
}
