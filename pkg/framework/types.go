package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// TimeSource provides the time of the current iteration.
type TimeSource interface {
	Time() time.Time
}

// TickContext provides the context of current iteration of a
// periodic task.
type TickContext interface {
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// Iteration is the 1-based number of the iteration.
	Iteration() int
}

// Task defines the work done once per interval.
type Task interface {
	Tick(TickContext) error
}

// TickFunc defines the func form of Task.
type TickFunc func(TickContext) error

// Tick implements Task.
func (f TickFunc) Tick(tc TickContext) error {
	return f(tc)
}
