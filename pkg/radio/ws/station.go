package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// ErrNotStarted indicates Connect is called before Start.
var ErrNotStarted = errors.New("station not started")

// Station is an assoc.Station associating through the hub.
type Station struct {
	radio   *Radio
	creds   assoc.Credentials
	started bool
	lock    sync.Mutex
}

// NewStation creates a Station on the radio.
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
	s.radio.lock.Lock()
	s.radio.linkLost = fn
	s.radio.lock.Unlock()
}

// Connect implements assoc.Station. The radio follows the channel of the
// access point.
func (s *Station) Connect(ctx context.Context) error {
	s.lock.Lock()
	creds, started := s.creds, s.started
	s.lock.Unlock()
	if !started {
		return ErrNotStarted
	}
	reply, err := s.radio.request(ctx, &Packet{Code: CodeAssoc, Data: encodeCredentials(creds)})
	if err != nil {
		return err
	}
	if len(reply.Data) != 1 || !radio.ValidChannel(int(reply.Data[0])) {
		return ErrBadPacket
	}
	s.radio.channel.Store(int32(reply.Data[0]))
	return nil
}
