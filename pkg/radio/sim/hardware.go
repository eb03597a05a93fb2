package sim

import (
	"time"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// Hardware attaches a node to the Air. The radio and its station are
// created by OpenRadio.
type Hardware struct {
	Air           *Air
	Addr          radio.Addr
	HandshakeTime time.Duration

	radio   *Radio
	station *Station
}

// NewHardware creates Hardware for the station address.
func NewHardware(air *Air, addr radio.Addr) *Hardware {
	return &Hardware{Air: air, Addr: addr}
}

// OpenRadio attaches the radio to the Air.
func (h *Hardware) OpenRadio() (radio.Handle, error) {
	r, err := h.Air.Attach(h.Addr)
	if err != nil {
		return nil, err
	}
	h.radio = r
	h.station = NewStation(r)
	h.station.HandshakeTime = h.HandshakeTime
	return r, nil
}

// Station returns the station driver, nil before OpenRadio.
func (h *Hardware) Station() assoc.Station {
	if h.station == nil {
		return nil
	}
	return h.station
}

// Radio returns the simulated radio, nil before OpenRadio.
func (h *Hardware) Radio() *Radio {
	return h.radio
}

// SimStation returns the simulated station, nil before OpenRadio.
func (h *Hardware) SimStation() *Station {
	return h.station
}
