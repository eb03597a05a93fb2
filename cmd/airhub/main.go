package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/radio/sim"
	"github.com/robotalks/espnow.go/pkg/radio/ws"
)

var (
	listenAddr = ":7420"
	ap         = sim.AccessPoint{SSID: "P601", Password: "00000000", Channel: 10}
)

func init() {
	flag.StringVar(&listenAddr, "listen", listenAddr, "HTTP listen address.")
	flag.StringVar(&ap.SSID, "ssid", ap.SSID, "SSID of the simulated access point, empty for none.")
	flag.StringVar(&ap.Password, "password", ap.Password, "Password of the simulated access point.")
	flag.IntVar(&ap.Channel, "channel", ap.Channel, "Channel of the simulated access point.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	air := sim.NewAir()
	if ap.SSID != "" {
		air.AddAccessPoint(ap)
	}
	server, err := ws.Listen(ws.NewHub(air), listenAddr)
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("air hub listening on %s", server.URL())
	if err := fx.NewRunner().HandleSignals().Go(server).Wait(); err != nil {
		glog.Exit(err)
	}
}
