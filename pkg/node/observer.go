package node

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// SendEvent reports one broadcaster attempt.
type SendEvent struct {
	Attempt int
	Time    time.Time
	Dst     radio.Addr
	Outcome radio.Outcome
	Err     error
}

// StateEvent reports one association state sample.
type StateEvent struct {
	Iteration int
	Time      time.Time
	State     assoc.State
}

// Observer receives the events of the periodic tasks. Implementations
// must not block.
type Observer interface {
	ObserveSend(SendEvent)
	ObserveState(StateEvent)
}

// LogObserver writes events to glog.
type LogObserver struct{}

// ObserveSend implements Observer.
func (LogObserver) ObserveSend(e SendEvent) {
	if e.Err != nil {
		glog.Warningf("send #%d to %s: %s: %v", e.Attempt, e.Dst, e.Outcome, e.Err)
		return
	}
	glog.Infof("send #%d to %s: %s", e.Attempt, e.Dst, e.Outcome)
}

// ObserveState implements Observer.
func (LogObserver) ObserveState(e StateEvent) {
	glog.Infof("wifi #%d connected=%v state=%s", e.Iteration, e.State.IsConnected(), e.State)
}

// ObserverMux fans out events to all observers.
type ObserverMux []Observer

// ObserveSend implements Observer.
func (m ObserverMux) ObserveSend(e SendEvent) {
	for _, o := range m {
		o.ObserveSend(e)
	}
}

// ObserveState implements Observer.
func (m ObserverMux) ObserveState(e StateEvent) {
	for _, o := range m {
		o.ObserveState(e)
	}
}
