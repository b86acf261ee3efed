package consolidate

import (
	"log/slog"
	"time"
)

const (
	DefaultInterval   = 30 * time.Second
	DefaultMaxRetries = 5
)

// Options configures a Daemon. Zero values select the defaults.
type Options struct {
	// Disabled makes Run and Start return immediately. RunCycle still works.
	Disabled bool

	// Interval is the Idle wait between cycles.
	Interval time.Duration

	// MaxRetries bounds how often one document is retried after a
	// conflicting edit within a cycle.
	MaxRetries int

	Clock   Clock
	Metrics Metrics
	Logger  *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Clock abstracts time for the Idle phase.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Metrics receives per-cycle observations.
type Metrics interface {
	Cycle(d time.Duration)
	Replaced(n int)
	Conflict()
	Failed()
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Cycle(time.Duration) {}
func (NoopMetrics) Replaced(int)        {}
func (NoopMetrics) Conflict()           {}
func (NoopMetrics) Failed()             {}
