// Package node wires the radio, the association supervisor and the
// periodic tasks of an ESP-NOW node.
//
// Bootstrap brings the hardware up in order: open the radio, associate,
// pin the channel, register peers. Start then runs the broadcaster, the
// status reporter, the receive drain and optionally the association
// retrier, each as its own Runnable.
package node

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/jonboulle/clockwork"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/config"
	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/sender"
)

// Hardware is the platform collaborator providing the peripherals.
type Hardware interface {
	// OpenRadio takes exclusive ownership of the radio.
	OpenRadio() (radio.Handle, error)
	// Station returns the station-mode driver. It's called after OpenRadio.
	Station() assoc.Station
}

// Bootstrap steps
const (
	StepOpenRadio    = "open radio"
	StepVersion      = "read version"
	StepConfigure    = "configure station"
	StepStart        = "start station"
	StepAssociate    = "request association"
	StepSetChannel   = "set channel"
	StepAddPeer      = "add peer"
	StepNotBooted    = "not bootstrapped"
	StepBootstrapped = "already bootstrapped"
)

// BootstrapError is a fatal failure during Bootstrap.
type BootstrapError struct {
	Step string
	Err  error
}

// Error implements error.
func (e *BootstrapError) Error() string {
	if e.Err == nil {
		return "bootstrap: " + e.Step
	}
	return fmt.Sprintf("bootstrap: %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// Node is a bootstrapped ESP-NOW node.
type Node struct {
	Config   *config.Config
	Hardware Hardware
	Clock    clockwork.Clock
	Observer Observer
	// StateObserver receives every association transition.
	StateObserver assoc.StateObserver
	// FrameHandler receives frames drained by the listener.
	FrameHandler FrameHandler

	radio      radio.Handle
	supervisor *assoc.Supervisor
	guard      *sender.Guard
	retrier    *assoc.Retrier
}

// New creates a Node logging to glog.
func New(cfg *config.Config, hw Hardware) *Node {
	return &Node{
		Config:   cfg,
		Hardware: hw,
		Clock:    clockwork.NewRealClock(),
		Observer: LogObserver{},
	}
}

// Bootstrap initializes the hardware. Any error is a *BootstrapError and
// leaves the radio closed.
func (n *Node) Bootstrap(ctx context.Context) (err error) {
	if n.radio != nil {
		return &BootstrapError{Step: StepBootstrapped}
	}
	h, err := n.Hardware.OpenRadio()
	if err != nil {
		return &BootstrapError{Step: StepOpenRadio, Err: err}
	}
	defer func() {
		if err != nil {
			if n.supervisor != nil {
				n.supervisor.Stop()
			}
			h.Close()
		}
	}()
	glog.Infof("Device MAC Address: %s", h.StationAddr())
	version, err := h.Version()
	if err != nil {
		return &BootstrapError{Step: StepVersion, Err: err}
	}
	glog.Infof("ESP-NOW version: %d", version)

	sup := assoc.NewSupervisor(n.Hardware.Station())
	sup.Timeout = n.Config.Association.Timeout
	sup.Observer = n.StateObserver
	if err = sup.Configure(n.Config.Credentials()); err != nil {
		return &BootstrapError{Step: StepConfigure, Err: err}
	}
	if err = sup.Start(ctx); err != nil {
		return &BootstrapError{Step: StepStart, Err: err}
	}
	n.supervisor = sup
	if err = sup.RequestAssociation(); err != nil {
		return &BootstrapError{Step: StepAssociate, Err: err}
	}
	glog.Infof("wifi state: %s", sup.State())

	if ch := n.Config.Network.Channel; ch != 0 {
		if err = h.SetChannel(ch); err != nil {
			return &BootstrapError{Step: StepSetChannel, Err: err}
		}
	}
	peers := n.Config.PeerAddrs()
	if n.Config.Radio.Broadcast {
		peers = append([]radio.Addr{radio.BroadcastAddr}, peers...)
	}
	for _, peer := range peers {
		if err = h.AddPeer(peer); err != nil {
			return &BootstrapError{Step: StepAddPeer, Err: fmt.Errorf("%s: %w", peer, err)}
		}
	}

	n.radio = h
	n.guard = sender.New(h)
	if policy := n.Config.RetryPolicy(); policy.Mode == assoc.RetryAuto {
		n.retrier = assoc.NewRetrier(sup, policy)
	}
	return nil
}

// Start spawns the tasks on the runner.
func (n *Node) Start(r *fx.Runner) error {
	if n.radio == nil {
		return &BootstrapError{Step: StepNotBooted}
	}
	cfg := n.Config
	r.Go(
		fx.Every(cfg.Broadcaster.Interval, &Broadcaster{
			Guard:    n.guard,
			Dst:      cfg.Destination(),
			Payload:  []byte(cfg.Broadcaster.Payload),
			Observer: n.Observer,
		}).WithClock(n.Clock),
		fx.Every(cfg.Reporter.Interval, &StatusReporter{
			Source:   n.supervisor,
			Observer: n.Observer,
		}).WithClock(n.Clock),
		&Listener{Receiver: n.radio, Handler: n.FrameHandler},
	)
	if n.retrier != nil {
		r.Go(fx.Every(n.retrier.Policy.Interval, n.retrier).WithClock(n.Clock))
	}
	return nil
}

// Run starts the tasks and waits until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	r := fx.NewRunnerWith(ctx)
	if err := n.Start(r); err != nil {
		return err
	}
	return r.Wait()
}

// Close stops the supervisor and releases the radio.
func (n *Node) Close() error {
	if n.supervisor != nil {
		n.supervisor.Stop()
	}
	if n.radio != nil {
		return n.radio.Close()
	}
	return nil
}

// Radio returns the radio handle after Bootstrap.
func (n *Node) Radio() radio.Handle {
	return n.radio
}

// Supervisor returns the association supervisor after Bootstrap.
func (n *Node) Supervisor() *assoc.Supervisor {
	return n.supervisor
}

// Guard returns the sender guard after Bootstrap.
func (n *Node) Guard() *sender.Guard {
	return n.guard
}
