package engine

import "time"

// Metrics receives counters, timings and spans emitted during a
// pursuit. The agent fires and forgets; implementations must be safe
// for concurrent use and must not block.
type Metrics interface {
	Count(name string, delta int64)
	Timing(name string, d time.Duration)

	// Span marks the start of a named region and returns the function
	// that ends it.
	Span(name string) func()
}

// nopMetrics is the default sink when no collector is configured.
type nopMetrics struct{}

func (nopMetrics) Count(string, int64)          {}
func (nopMetrics) Timing(string, time.Duration) {}
func (nopMetrics) Span(string) func()           { return func() {} }
