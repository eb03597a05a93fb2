package radio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Addr is a 6-byte station address.
type Addr [6]byte

// BroadcastAddr is the reserved all-bits-set destination.
var BroadcastAddr = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Channel limits.
const (
	MinChannel = 1
	MaxChannel = 14
)

// MaxPayload is the maximum payload size of a single frame.
const MaxPayload = 250

// ParseAddr parses "aa:bb:cc:dd:ee:ff" (or "-" separated) into Addr.
func ParseAddr(s string) (a Addr, err error) {
	items := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(items) != len(a) {
		return a, fmt.Errorf("invalid station address %q", s)
	}
	for n, item := range items {
		if len(item) != 2 {
			return a, fmt.Errorf("invalid station address %q", s)
		}
		v, err := strconv.ParseUint(item, 16, 8)
		if err != nil {
			return a, fmt.Errorf("invalid station address %q", s)
		}
		a[n] = byte(v)
	}
	return a, nil
}

// MustParseAddr parses an address and panics on error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String formats the address as upper-case colon separated hex.
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsBroadcast indicates the address is the broadcast address.
func (a Addr) IsBroadcast() bool {
	return a == BroadcastAddr
}

// IsZero indicates the address is not set.
func (a Addr) IsZero() bool {
	return a == Addr{}
}

// ValidChannel checks if ch is in the range supported by the radio.
func ValidChannel(ch int) bool {
	return ch >= MinChannel && ch <= MaxChannel
}

// Outcome is the result of one transmission attempt.
type Outcome int

// Outcomes
const (
	// Failed indicates the frame was not transmitted.
	Failed Outcome = iota
	// Acknowledged indicates the frame was transmitted and, for unicast,
	// acknowledged by the peer.
	Acknowledged
	// Unacknowledged indicates the frame was transmitted but no peer
	// acknowledged it.
	Unacknowledged
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Acknowledged:
		return "Acknowledged"
	case Unacknowledged:
		return "Unacknowledged"
	case Failed:
		return "Failed"
	}
	return "Outcome(" + strconv.Itoa(int(o)) + ")"
}

// Frame is a received or transmitted frame.
type Frame struct {
	Dst     Addr
	Src     Addr
	Channel int
	Payload []byte
}

// Sender is the send capability of a radio.
type Sender interface {
	// Send transmits payload to dst. Outcome is Failed iff err is not nil.
	Send(ctx context.Context, dst Addr, payload []byte) (Outcome, error)
}

// Receiver is the receive capability of a radio.
type Receiver interface {
	// Receive blocks until a frame arrives or ctx is done.
	Receive(ctx context.Context) (*Frame, error)
}

// Handle is the initialized radio peripheral.
type Handle interface {
	Sender
	Receiver

	// StationAddr returns the hardware address of the radio.
	StationAddr() Addr
	// Version returns the protocol version of the radio.
	Version() (uint32, error)
	// Channel returns the current channel.
	Channel() int
	// SetChannel tunes the radio to the channel.
	SetChannel(ch int) error
	// AddPeer registers a destination, including BroadcastAddr.
	AddPeer(addr Addr) error
	// Close releases the peripheral.
	Close() error
}
