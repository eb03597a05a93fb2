package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robotalks/espnow.go/pkg/assoc"
)

var (
	// ErrNoAccessPoint indicates no access point with the SSID is on air.
	ErrNoAccessPoint = errors.New("no access point")
	// ErrAuthRejected indicates the access point rejected the credential.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrNotStarted indicates Connect is called before Start.
	ErrNotStarted = errors.New("station not started")
)

// Station is a simulated assoc.Station bound to a simulated radio.
// On association the radio follows the channel of the access point.
type Station struct {
	// HandshakeTime is the simulated duration of the handshake.
	HandshakeTime time.Duration

	radio    *Radio
	creds    assoc.Credentials
	started  bool
	ssid     string
	linkLost func(error)
	lock     sync.Mutex
}

// NewStation creates a Station for the radio.
func NewStation(r *Radio) *Station {
	return &Station{radio: r}
}

// Configure implements assoc.Station.
func (s *Station) Configure(creds assoc.Credentials) error {
	s.lock.Lock()
	s.creds = creds
	s.lock.Unlock()
	return nil
}

// Start implements assoc.Station.
func (s *Station) Start() error {
	s.lock.Lock()
	s.started = true
	s.lock.Unlock()
	return nil
}

// SetLinkLostHandler implements assoc.Station.
func (s *Station) SetLinkLostHandler(fn func(error)) {
	s.lock.Lock()
	s.linkLost = fn
	s.lock.Unlock()
}

// Connect implements assoc.Station.
func (s *Station) Connect(ctx context.Context) error {
	s.lock.Lock()
	creds, started := s.creds, s.started
	s.ssid = ""
	s.lock.Unlock()
	if !started {
		return ErrNotStarted
	}
	air := s.radio.air
	if s.HandshakeTime > 0 {
		timer := air.Clock.NewTimer(s.HandshakeTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
	ap := air.accessPoint(creds.SSID)
	if ap == nil {
		return fmt.Errorf("%w %q", ErrNoAccessPoint, creds.SSID)
	}
	if ap.Password != creds.Password {
		return fmt.Errorf("%q: %w", creds.SSID, ErrAuthRejected)
	}
	if creds.Channel != 0 && creds.Channel != ap.Channel {
		return fmt.Errorf("%w %q on channel %d", ErrNoAccessPoint, creds.SSID, creds.Channel)
	}
	if err := s.radio.SetChannel(ap.Channel); err != nil {
		return err
	}
	s.lock.Lock()
	s.ssid = ap.SSID
	s.lock.Unlock()
	return nil
}

// DropLink simulates the loss of an established association.
func (s *Station) DropLink(reason error) {
	s.lock.Lock()
	fn, associated := s.linkLost, s.ssid != ""
	s.ssid = ""
	s.lock.Unlock()
	if associated && fn != nil {
		fn(reason)
	}
}

// SSID returns the associated network, empty if not associated.
func (s *Station) SSID() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ssid
}
