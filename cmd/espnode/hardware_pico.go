//go:build rp2040 || rp2350

package main

import (
	"fmt"

	"github.com/robotalks/espnow.go/pkg/config"
	"github.com/robotalks/espnow.go/pkg/node"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/radio/cyw43"
)

// The address is read from the chip during bootstrap, telemetry is not
// published on the board.
func newHardware(cfg *config.Config) (node.Hardware, radio.Addr, error) {
	if cfg.Radio.Backend != config.BackendCYW43 {
		return nil, radio.Addr{}, fmt.Errorf("not supported on this platform")
	}
	return &cyw43.Hardware{}, radio.Addr{}, nil
}
