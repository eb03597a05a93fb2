package ws

import (
	"context"
	"time"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// DefaultDialTimeout bounds connecting to the hub.
const DefaultDialTimeout = 5 * time.Second

// Hardware connects a node to an air hub.
type Hardware struct {
	URL  string
	Addr radio.Addr

	radio   *Radio
	station *Station
}

// NewHardware creates Hardware.
func NewHardware(url string, addr radio.Addr) *Hardware {
	return &Hardware{URL: url, Addr: addr}
}

// OpenRadio dials the hub.
func (h *Hardware) OpenRadio() (radio.Handle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultDialTimeout)
	defer cancel()
	r, err := Dial(ctx, h.URL, h.Addr)
	if err != nil {
		return nil, err
	}
	h.radio, h.station = r, NewStation(r)
	return r, nil
}

// Station returns the station driver, nil before OpenRadio.
func (h *Hardware) Station() assoc.Station {
	if h.station == nil {
		return nil
	}
	return h.station
}
