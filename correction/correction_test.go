package correction_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forgeline/pursuit/correction"
)

func TestCorrect_PatternClassification(t *testing.T) {
	cases := []struct {
		errorText string
		want      correction.StrategyKind
		retry     bool
	}{
		{"operation timed out after 30s", correction.StrategyRetry, true},
		{"context deadline exceeded", correction.StrategyRetry, true},
		{"429 Too Many Requests", correction.StrategyRetry, true},
		{"rate limit exceeded, retry later", correction.StrategyRetry, true},
		{"resource not found", correction.StrategyAlternative, true},
		{"entity does not exist", correction.StrategyAlternative, true},
		{"permission denied on /etc/shadow", correction.StrategyEscalate, false},
		{"401 unauthorized", correction.StrategyEscalate, false},
		{"input too large for model", correction.StrategyDecompose, true},
		{"something completely different", correction.StrategyRetry, true}, // fallback
	}

	for i, tc := range cases {
		t.Run(tc.errorText, func(t *testing.T) {
			engine := correction.NewEngine(nil)
			defer engine.Close()

			taskID := fmt.Sprintf("task-%d", i)
			c := engine.Correct(taskID, tc.errorText, nil)
			if c.Strategy.Kind != tc.want {
				t.Errorf("expected %s, got %s", tc.want, c.Strategy.Kind)
			}
			if c.ShouldRetry != tc.retry {
				t.Errorf("expected shouldRetry=%t, got %t", tc.retry, c.ShouldRetry)
			}
		})
	}
}

func TestCorrect_FallbackIsLowConfidence(t *testing.T) {
	engine := correction.NewEngine(nil)
	defer engine.Close()

	c := engine.Correct("t1", "inexplicable glitch", nil)
	if c.Strategy.Kind != correction.StrategyRetry {
		t.Fatalf("fallback should be retry, got %s", c.Strategy.Kind)
	}
	if c.Strategy.Confidence >= 0.5 {
		t.Errorf("fallback confidence should be low, got %f", c.Strategy.Confidence)
	}
}

func TestCorrect_FirstMatchWins(t *testing.T) {
	engine := correction.NewEngine(nil)
	defer engine.Close()

	// Matches both timeout and not-found; timeout is earlier in the
	// table.
	c := engine.Correct("t1", "timed out waiting, resource not found", nil)
	if c.Strategy.Kind != correction.StrategyRetry {
		t.Errorf("earlier pattern should win, got %s", c.Strategy.Kind)
	}
}

func TestCorrect_AttemptCapEscalates(t *testing.T) {
	engine := correction.NewEngine(&correction.Config{MaxAttemptsPerTask: 3})
	defer engine.Close()

	for i := 0; i < 3; i++ {
		c := engine.Correct("t1", "transient glitch", nil)
		if !c.ShouldRetry {
			t.Fatalf("attempt %d should still allow retry", i)
		}
	}

	// Every call past the cap escalates, permanently.
	for i := 0; i < 5; i++ {
		c := engine.Correct("t1", "transient glitch", nil)
		if c.Strategy.Kind != correction.StrategyEscalate {
			t.Fatalf("call %d past cap should escalate, got %s", i, c.Strategy.Kind)
		}
		if c.ShouldRetry {
			t.Fatalf("call %d past cap should not retry", i)
		}
	}

	if got := len(engine.Attempts("t1")); got != 3 {
		t.Errorf("history should hold exactly the 3 real attempts, got %d", got)
	}
}

func TestCorrect_AttemptsRecorded(t *testing.T) {
	engine := correction.NewEngine(nil)
	defer engine.Close()

	engine.Correct("t1", "timed out", nil)
	engine.Correct("t1", "not found", nil)

	attempts := engine.Attempts("t1")
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Strategy != correction.StrategyRetry {
		t.Errorf("first attempt should record retry, got %s", attempts[0].Strategy)
	}
	if attempts[1].Strategy != correction.StrategyAlternative {
		t.Errorf("second attempt should record alternative, got %s", attempts[1].Strategy)
	}
	if attempts[0].Success {
		t.Error("attempts default to unsuccessful")
	}

	engine.RecordSuccess("t1")
	attempts = engine.Attempts("t1")
	if !attempts[1].Success {
		t.Error("RecordSuccess should mark the most recent attempt successful")
	}
	if attempts[0].Success {
		t.Error("earlier attempts stay unsuccessful")
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	engine := correction.NewEngine(&correction.Config{
		BreakerThreshold: 4,
		BreakerCooldown:  time.Hour, // never half-opens during the test
	})
	defer engine.Close()

	for i := 0; i < 3; i++ {
		engine.RecordFailure("t1")
		if state := engine.BreakerState("t1"); state != correction.BreakerClosed {
			t.Fatalf("breaker should stay closed at %d failures, got %s", i+1, state)
		}
	}

	engine.RecordFailure("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerOpen {
		t.Fatalf("breaker should open at the threshold, got %s", state)
	}

	// Open breaker short-circuits Correct to a terminal skip.
	c := engine.Correct("t1", "timed out", nil)
	if c.Strategy.Kind != correction.StrategySkip || c.ShouldRetry {
		t.Errorf("open breaker should skip, got %s retry=%t", c.Strategy.Kind, c.ShouldRetry)
	}
	if got := len(engine.Attempts("t1")); got != 0 {
		t.Errorf("skip should not record an attempt, got %d", got)
	}

	// Breakers are per task.
	if state := engine.BreakerState("t2"); state != correction.BreakerClosed {
		t.Errorf("other tasks should be unaffected, got %s", state)
	}
}

func TestBreaker_FullCycle(t *testing.T) {
	engine := correction.NewEngine(&correction.Config{
		BreakerThreshold:  2,
		BreakerCooldown:   20 * time.Millisecond,
		HalfOpenSuccesses: 3,
	})
	defer engine.Close()

	engine.RecordFailure("t1")
	engine.RecordFailure("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerOpen {
		t.Fatalf("expected open, got %s", state)
	}

	// Cooldown elapses -> half-open.
	deadline := time.Now().Add(2 * time.Second)
	for engine.BreakerState("t1") != correction.BreakerHalfOpen {
		if time.Now().After(deadline) {
			t.Fatal("breaker never half-opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Successes while half-open close it and reset the counter.
	engine.RecordSuccess("t1")
	engine.RecordSuccess("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerHalfOpen {
		t.Fatalf("two successes should not close yet, got %s", state)
	}
	engine.RecordSuccess("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerClosed {
		t.Fatalf("third success should close the breaker, got %s", state)
	}

	// Counter was reset: one new failure must not reopen.
	engine.RecordFailure("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerClosed {
		t.Errorf("failure counter should have reset, got %s", state)
	}
}

func TestBreaker_FailureWhileHalfOpenReopens(t *testing.T) {
	engine := correction.NewEngine(&correction.Config{
		BreakerThreshold: 1,
		BreakerCooldown:  10 * time.Millisecond,
	})
	defer engine.Close()

	engine.RecordFailure("t1")

	deadline := time.Now().Add(2 * time.Second)
	for engine.BreakerState("t1") != correction.BreakerHalfOpen {
		if time.Now().After(deadline) {
			t.Fatal("breaker never half-opened")
		}
		time.Sleep(2 * time.Millisecond)
	}

	engine.RecordFailure("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerOpen {
		t.Errorf("failure during probation should reopen, got %s", state)
	}
}

func TestBreaker_SuccessWhileClosedHasNoStateEffect(t *testing.T) {
	engine := correction.NewEngine(nil)
	defer engine.Close()

	engine.RecordSuccess("t1")
	if state := engine.BreakerState("t1"); state != correction.BreakerClosed {
		t.Errorf("expected closed, got %s", state)
	}
}

func TestWithRetry_EventualSuccess(t *testing.T) {
	calls := 0
	err := correction.WithRetry(context.Background(), 3, time.Millisecond, false, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_SurfacesLastError(t *testing.T) {
	calls := 0
	var observed []time.Duration
	observer := func(attempt int, delay time.Duration, err error) {
		observed = append(observed, delay)
	}

	err := correction.WithRetry(context.Background(), 2, time.Millisecond, true, observer, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("failure %d", calls)
	})
	if err == nil || err.Error() != "failure 3" {
		t.Fatalf("expected last error surfaced, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 1 + 2 retries = 3 calls, got %d", calls)
	}
	if len(observed) != 2 {
		t.Fatalf("observer should run before each wait, got %d calls", len(observed))
	}
	if observed[1] != 2*observed[0] {
		t.Errorf("exponential backoff should double the delay: %v", observed)
	}
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := correction.WithRetry(ctx, 5, time.Minute, false, nil, func(ctx context.Context) error {
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
