package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	fx "github.com/robotalks/espnow.go/pkg/framework"
	"github.com/robotalks/espnow.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/espnow/"
)

func init() {
	if val := os.Getenv("ESPNODE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub("#", telemetry.Handler(func(topic string, payload []byte) {
		text, err := telemetry.Format(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		kind := topic[strings.LastIndex(topic, "/")+1:]
		log.Printf("%s: [%s] %s", topic, kind, text)
	}))

	monitor := fx.NamedRun("monitor", fx.RunFunc(func(ctx context.Context) error {
		q.Connect()
		<-ctx.Done()
		return q.Close()
	}))
	if err := fx.NewRunner().HandleSignals().Go(monitor).Wait(); err != nil {
		log.Fatalln(err)
	}
}
