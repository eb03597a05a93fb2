//go:build !rp2040 && !rp2350

package main

import (
	"fmt"

	"github.com/robotalks/espnow.go/pkg/config"
	"github.com/robotalks/espnow.go/pkg/node"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/radio/sim"
	"github.com/robotalks/espnow.go/pkg/radio/ws"
)

func newHardware(cfg *config.Config) (node.Hardware, radio.Addr, error) {
	addr, err := cfg.StationAddr()
	if err != nil {
		return nil, addr, err
	}
	switch cfg.Radio.Backend {
	case config.BackendSim:
		air := sim.NewAir().AddAccessPoint(sim.AccessPoint{
			SSID:     cfg.Network.SSID,
			Password: cfg.Network.Password,
			Channel:  cfg.Network.Channel,
		})
		return sim.NewHardware(air, addr), addr, nil
	case config.BackendWS:
		return ws.NewHardware(cfg.Radio.AirURL, addr), addr, nil
	}
	return nil, addr, fmt.Errorf("not supported on this platform")
}
