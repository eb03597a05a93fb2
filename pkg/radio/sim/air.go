// Package sim provides an in-process simulated radio medium.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/jonboulle/clockwork"

	"github.com/robotalks/espnow.go/pkg/radio"
)

// ProtocolVersion is the version reported by simulated radios.
const ProtocolVersion uint32 = 1

// DefaultRxQueueSize is the number of frames buffered per radio.
const DefaultRxQueueSize = 16

var (
	// ErrAddrInUse indicates another radio is attached with the same address.
	ErrAddrInUse = errors.New("station address in use")
)

// Air is the shared medium connecting simulated radios and access points.
type Air struct {
	Clock       clockwork.Clock
	RxQueueSize int

	radios map[radio.Addr]*Radio
	aps    map[string]*AccessPoint
	lock   sync.RWMutex
}

// AccessPoint is a simulated Wi-Fi access point.
type AccessPoint struct {
	SSID     string
	Password string
	Channel  int
}

// NewAir creates an Air using the real clock.
func NewAir() *Air {
	return &Air{
		Clock:       clockwork.NewRealClock(),
		RxQueueSize: DefaultRxQueueSize,
	}
}

// WithClock replaces the clock.
func (a *Air) WithClock(clock clockwork.Clock) *Air {
	a.Clock = clock
	return a
}

// Attach creates a radio with the given station address.
func (a *Air) Attach(addr radio.Addr) (*Radio, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.radios == nil {
		a.radios = make(map[radio.Addr]*Radio)
	}
	if _, exist := a.radios[addr]; exist || addr.IsBroadcast() || addr.IsZero() {
		return nil, fmt.Errorf("attach %s: %w", addr, ErrAddrInUse)
	}
	qsize := a.RxQueueSize
	if qsize <= 0 {
		qsize = DefaultRxQueueSize
	}
	r := &Radio{
		air:    a,
		addr:   addr,
		rxCh:   make(chan *radio.Frame, qsize),
		closed: make(chan struct{}),
	}
	r.channel.Store(radio.MinChannel)
	a.radios[addr] = r
	return r, nil
}

// AddAccessPoint makes an access point available for association.
func (a *Air) AddAccessPoint(ap AccessPoint) *Air {
	a.lock.Lock()
	if a.aps == nil {
		a.aps = make(map[string]*AccessPoint)
	}
	a.aps[ap.SSID] = &ap
	a.lock.Unlock()
	return a
}

// RemoveAccessPoint takes an access point off air.
func (a *Air) RemoveAccessPoint(ssid string) {
	a.lock.Lock()
	delete(a.aps, ssid)
	a.lock.Unlock()
}

func (a *Air) accessPoint(ssid string) *AccessPoint {
	a.lock.RLock()
	defer a.lock.RUnlock()
	if ap := a.aps[ssid]; ap != nil {
		copied := *ap
		return &copied
	}
	return nil
}

func (a *Air) detach(r *Radio) {
	a.lock.Lock()
	if a.radios[r.addr] == r {
		delete(a.radios, r.addr)
	}
	a.lock.Unlock()
}

// transmit delivers the frame and returns whether a unicast peer received it.
func (a *Air) transmit(f *radio.Frame) (delivered bool) {
	a.lock.RLock()
	receivers := make([]*Radio, 0, len(a.radios))
	for addr, r := range a.radios {
		if addr == f.Src || r.Channel() != f.Channel {
			continue
		}
		if f.Dst.IsBroadcast() || f.Dst == addr {
			receivers = append(receivers, r)
		}
	}
	a.lock.RUnlock()
	for _, r := range receivers {
		if r.deliver(f) {
			delivered = true
		} else {
			glog.V(2).Infof("sim: %s rx queue full, dropped frame from %s", r.addr, f.Src)
		}
	}
	return
}
