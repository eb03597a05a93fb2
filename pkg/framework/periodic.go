package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/jonboulle/clockwork"
)

// DefaultInterval is used when Periodic.Interval is not set.
const DefaultInterval = time.Second

// Periodic runs a Task once per Interval until the context is done.
// Each iteration first waits the full interval, then runs the task;
// the wait is the only suspension point Periodic adds.
type Periodic struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Task     Task

	name string
}

// Every creates a Periodic.
func Every(interval time.Duration, task Task) *Periodic {
	return &Periodic{Interval: interval, Task: task}
}

// Named sets the name used in logs.
func (p *Periodic) Named(name string) *Periodic {
	p.name = name
	return p
}

// WithClock replaces the clock, mostly for tests.
func (p *Periodic) WithClock(clock clockwork.Clock) *Periodic {
	p.Clock = clock
	return p
}

// Name implements Named.
func (p *Periodic) Name() string {
	if p.name != "" {
		return p.name
	}
	if named, ok := p.Task.(Named); ok {
		return named.Name()
	}
	return "periodic"
}

// Run implements Runnable.
func (p *Periodic) Run(ctx context.Context) error {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	for n := 1; ; n++ {
		timer := clock.NewTimer(interval)
		var now time.Time
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case now = <-timer.Chan():
		}
		if err := p.Task.Tick(&tick{ctx: ctx, time: now, iteration: n}); err != nil && !IsCanceled(err) {
			glog.Errorf("%s: iteration %d error: %v", p.Name(), n, err)
		}
	}
}

type tick struct {
	ctx       context.Context
	time      time.Time
	iteration int
}

func (t *tick) Context() context.Context { return t.ctx }
func (t *tick) Time() time.Time          { return t.time }
func (t *tick) Iteration() int           { return t.iteration }
