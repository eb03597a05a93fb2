package node

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/assoc"
	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/sender"
)

// Broadcaster sends Payload to Dst once per iteration through the guard.
// A failed attempt is reported and never retried.
type Broadcaster struct {
	Guard    *sender.Guard
	Dst      radio.Addr
	Payload  []byte
	Observer Observer
}

// Name implements Named.
func (b *Broadcaster) Name() string {
	return "broadcaster"
}

// Tick implements Task.
func (b *Broadcaster) Tick(tc fx.TickContext) error {
	ctx := tc.Context()
	return b.Guard.Do(ctx, func(a *sender.Access) error {
		outcome, err := a.Send(ctx, b.Dst, b.Payload)
		if b.Observer != nil {
			b.Observer.ObserveSend(SendEvent{
				Attempt: tc.Iteration(),
				Time:    tc.Time(),
				Dst:     b.Dst,
				Outcome: outcome,
				Err:     err,
			})
		}
		return nil
	})
}

// StateSource provides the association state.
type StateSource interface {
	State() assoc.State
}

// StatusReporter samples the association state once per iteration.
type StatusReporter struct {
	Source   StateSource
	Observer Observer
}

// Name implements Named.
func (r *StatusReporter) Name() string {
	return "reporter"
}

// Tick implements Task.
func (r *StatusReporter) Tick(tc fx.TickContext) error {
	state := r.Source.State()
	if r.Observer != nil {
		r.Observer.ObserveState(StateEvent{
			Iteration: tc.Iteration(),
			Time:      tc.Time(),
			State:     state,
		})
	}
	return nil
}

// FrameHandler handles a received frame.
type FrameHandler func(*radio.Frame)

// Listener drains the receive queue of the radio.
type Listener struct {
	Receiver radio.Receiver
	Handler  FrameHandler
}

// Name implements Named.
func (l *Listener) Name() string {
	return "listener"
}

// Run implements Runnable.
func (l *Listener) Run(ctx context.Context) error {
	for {
		f, err := l.Receiver.Receive(ctx)
		switch {
		case err == nil:
		case errors.Is(err, radio.ErrClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			glog.Warningf("receive: %v", err)
			continue
		}
		if glog.V(2) {
			glog.Infof("recv %s -> %s ch%d: %q", f.Src, f.Dst, f.Channel, f.Payload)
		}
		if l.Handler != nil {
			l.Handler(f)
		}
	}
}
