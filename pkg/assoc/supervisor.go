// Package assoc supervises the station-mode association of a node.
package assoc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout bounds a single association handshake.
const DefaultTimeout = 10 * time.Second

// Supervisor drives the association sequence and exposes its state.
// State is lock-free; all transitions are made by the Supervisor itself.
type Supervisor struct {
	Timeout  time.Duration
	Observer StateObserver

	station    Station
	state      atomic.Pointer[State]
	configured bool
	started    bool
	ctx        context.Context
	cancel     func()
	handshakes sync.WaitGroup
	pending    []State
	notifying  bool
	lock       sync.Mutex
}

// NewSupervisor creates a Supervisor over a station driver.
func NewSupervisor(station Station) *Supervisor {
	s := &Supervisor{Timeout: DefaultTimeout, station: station}
	s.state.Store(&State{Phase: Disconnected})
	return s
}

// Configure applies the credentials. It must be called before Start.
func (s *Supervisor) Configure(creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	if err := s.station.Configure(creds); err != nil {
		return fmt.Errorf("configure station: %w", err)
	}
	s.configured = true
	return nil
}

// Start activates station mode. Handshakes run until ctx is done or
// Stop is called.
func (s *Supervisor) Start(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.configured {
		return ErrNotConfigured
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.station.SetLinkLostHandler(s.linkLost)
	if err := s.station.Start(); err != nil {
		return fmt.Errorf("start station: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	return nil
}

// RequestAssociation begins an asynchronous handshake. The progress is
// observed through State.
func (s *Supervisor) RequestAssociation() error {
	defer s.notify()
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	if s.State().Phase == Connecting {
		return ErrAssociationInProgress
	}
	s.setState(State{Phase: Connecting})
	s.handshakes.Add(1)
	go s.associate(s.ctx)
	return nil
}

// State returns the latest snapshot. It never blocks.
func (s *Supervisor) State() State {
	return *s.state.Load()
}

// Stop aborts a running handshake and waits for it to finish.
func (s *Supervisor) Stop() {
	s.lock.Lock()
	cancel := s.cancel
	s.lock.Unlock()
	if cancel != nil {
		cancel()
	}
	s.handshakes.Wait()
}

func (s *Supervisor) associate(ctx context.Context) {
	defer s.handshakes.Done()
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	err := s.station.Connect(hctx)
	cancel()

	defer s.notify()
	s.lock.Lock()
	defer s.lock.Unlock()
	if err == nil {
		s.setState(State{Phase: Connected})
		return
	}
	var reason string
	switch {
	case ctx.Err() != nil:
		reason = "association aborted"
	case errors.Is(err, context.DeadlineExceeded):
		reason = fmt.Sprintf("association timed out after %s", timeout)
	default:
		reason = err.Error()
	}
	if reason == "" {
		reason = "association failed"
	}
	s.setState(State{Phase: Failed, Reason: reason})
}

func (s *Supervisor) linkLost(err error) {
	defer s.notify()
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.State().Phase != Connected {
		return
	}
	reason := "link lost"
	if err != nil && err.Error() != "" {
		reason += ": " + err.Error()
	}
	s.setState(State{Phase: Failed, Reason: reason})
}

// setState must be called with s.lock held. The observer is notified by
// notify once the lock is released.
func (s *Supervisor) setState(next State) {
	prev := s.state.Swap(&next)
	glog.Infof("association: %s -> %s", prev, next)
	if s.Observer != nil {
		s.pending = append(s.pending, next)
	}
}

// notify delivers pending transitions in order. Only one goroutine
// delivers at a time; transitions made by the observer itself are
// delivered after it returns.
func (s *Supervisor) notify() {
	for {
		s.lock.Lock()
		if s.notifying || len(s.pending) == 0 {
			s.lock.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.notifying = true
		s.lock.Unlock()

		func() {
			defer func() {
				s.lock.Lock()
				s.notifying = false
				s.lock.Unlock()
			}()
			s.Observer.StateChanged(next)
		}()
	}
}
