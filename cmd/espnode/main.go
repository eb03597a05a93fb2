package main

//go-build: CGO_ENABLED=0

import (
	"errors"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/config"
	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/node"
	"github.com/robotalks/espnow.go/pkg/radio"
	"github.com/robotalks/espnow.go/pkg/telemetry"
)

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.NewConfig()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	hw, addr, err := newHardware(cfg)
	if err != nil {
		glog.Exitf("%s backend: %v", cfg.Radio.Backend, err)
	}

	n := node.New(cfg, hw)
	n.FrameHandler = func(f *radio.Frame) {
		glog.Infof("rx %s -> %s ch%d: %q", f.Src, f.Dst, f.Channel, f.Payload)
	}
	var pub *telemetry.Publisher
	if url := cfg.Telemetry.MQTTURL; url != "" && !addr.IsZero() {
		meta := telemetry.Meta{
			Addr:    addr,
			SSID:    cfg.Network.SSID,
			Channel: cfg.Network.Channel,
			Backend: cfg.Radio.Backend,
		}
		if pub, err = telemetry.NewPublisher(url, meta); err != nil {
			glog.Exitf("telemetry: %v", err)
		}
		n.Observer = node.ObserverMux{node.LogObserver{}, pub}
		n.StateObserver = pub
	}

	runner := fx.NewRunner().HandleSignals()
	if err := n.Bootstrap(runner.Context); err != nil {
		var be *node.BootstrapError
		if errors.As(err, &be) {
			glog.Exitf("%s failed: %v", be.Step, be.Err)
		}
		glog.Exit(err)
	}
	defer n.Close()
	if pub != nil {
		pub.Meta.Version, _ = n.Radio().Version()
		runner.Go(pub)
	}
	if err := n.Start(runner); err != nil {
		glog.Exit(err)
	}
	if err := runner.Wait(); err != nil {
		glog.Errorf("stopped: %v", err)
	}
}
