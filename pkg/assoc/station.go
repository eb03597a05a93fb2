package assoc

import (
	"context"

	"github.com/robotalks/espnow.go/pkg/radio"
)

// Credentials are the network association parameters.
type Credentials struct {
	SSID     string
	Password string
	// Channel is the fixed channel, 0 lets the access point decide.
	Channel int
}

// Validate checks the credentials.
func (c Credentials) Validate() error {
	if l := len(c.SSID); l == 0 || l > 32 {
		return ErrInvalidSSID
	}
	if l := len(c.Password); l != 0 && (l < 8 || l > 63) {
		return ErrInvalidPassword
	}
	if c.Channel != 0 && !radio.ValidChannel(c.Channel) {
		return ErrInvalidChannel
	}
	return nil
}

// Station is the station-mode driver of the Wi-Fi peripheral.
type Station interface {
	// Configure applies the credentials.
	Configure(Credentials) error
	// Start activates station mode.
	Start() error
	// Connect runs the association handshake until it succeeds, fails,
	// or ctx is done.
	Connect(ctx context.Context) error
	// SetLinkLostHandler installs the callback invoked when an
	// established association is lost.
	SetLinkLostHandler(func(error))
}
