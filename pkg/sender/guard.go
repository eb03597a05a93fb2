// Package sender serializes access to the transmit side of a radio.
//
// A Guard wraps a radio.Sender so that at most one Access is live at any
// instant. Tasks acquire an Access, send through it and release it; the
// Access refuses to send once released.
package sender

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/robotalks/espnow.go/pkg/radio"
)

// ErrReleased is returned by Access.Send after Release.
var ErrReleased = errors.New("sender access released")

// Guard is the shared sender guard.
type Guard struct {
	sender radio.Sender
	token  chan struct{}
}

// New wraps the sender.
func New(s radio.Sender) *Guard {
	return &Guard{sender: s, token: make(chan struct{}, 1)}
}

// Acquire suspends until no other Access is live. If ctx is done first,
// ctx.Err() is returned and nothing is acquired.
func (g *Guard) Acquire(ctx context.Context) (*Access, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case g.token <- struct{}{}:
		return &Access{guard: g}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire returns nil if the guard is held.
func (g *Guard) TryAcquire() *Access {
	select {
	case g.token <- struct{}{}:
		return &Access{guard: g}
	default:
		return nil
	}
}

// Do runs fn with an Access and releases it when fn returns or panics.
func (g *Guard) Do(ctx context.Context, fn func(*Access) error) error {
	a, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer a.Release()
	return fn(a)
}

// Access is the exclusive right to transmit, obtained from a Guard.
type Access struct {
	guard    *Guard
	released atomic.Bool
}

// Send transmits payload to dst.
func (a *Access) Send(ctx context.Context, dst radio.Addr, payload []byte) (radio.Outcome, error) {
	if a.released.Load() {
		return radio.Failed, ErrReleased
	}
	return a.guard.sender.Send(ctx, dst, payload)
}

// Release gives the guard back. Only the first call has effect.
func (a *Access) Release() {
	if a.released.CompareAndSwap(false, true) {
		<-a.guard.token
	}
}

// Released indicates Release has been called.
func (a *Access) Released() bool {
	return a.released.Load()
}
