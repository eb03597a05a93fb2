package config

import (
	"flag"
	"os"
)

// Flags holds the command line overrides.
type Flags struct {
	Path     string
	SSID     string
	Password string
	Channel  int
	Backend  string
	AirURL   string
	Addr     string
	Instance string
	MQTTURL  string

	fs *flag.FlagSet
}

var defaultFlags Flags

func init() {
	if val := os.Getenv("ESPNODE_CONFIG"); val != "" {
		defaultFlags.Path = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultFlags.Register(flag.CommandLine)
}

// NewConfig loads the configuration using command line flags.
func NewConfig() (*Config, error) {
	return defaultFlags.Config()
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) *Flags {
	def := Default()
	fs.StringVar(&f.Path, "config", f.Path, "Configuration file (YAML).")
	fs.StringVar(&f.SSID, "ssid", def.Network.SSID, "Wi-Fi SSID to join.")
	fs.StringVar(&f.Password, "password", def.Network.Password, "Wi-Fi password.")
	fs.IntVar(&f.Channel, "channel", def.Network.Channel, "Fixed radio channel, 0 follows the access point.")
	fs.StringVar(&f.Backend, "backend", def.Radio.Backend, "Radio backend: sim, ws or cyw43.")
	fs.StringVar(&f.AirURL, "air", def.Radio.AirURL, "Air hub URL for the ws backend.")
	fs.StringVar(&f.Addr, "addr", def.Radio.Addr, "Station address of a simulated radio, derived from the machine ID by default.")
	fs.StringVar(&f.Instance, "instance", def.Radio.Instance, "Instance name mixed into the derived station address.")
	fs.StringVar(&f.MQTTURL, "mqtt", def.Telemetry.MQTTURL, "MQTT telemetry URL, e.g. mqtt://host:1883/espnow/.")
	f.fs = fs
	return f
}

// Config loads the file, applies the environment and then the flags
// explicitly set on the command line.
func (f *Flags) Config() (*Config, error) {
	c, err := load(f.Path, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	f.apply(c)
	return c, c.Validate()
}

func (f *Flags) apply(c *Config) {
	if f.fs == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "ssid":
			c.Network.SSID = f.SSID
		case "password":
			c.Network.Password = f.Password
		case "channel":
			c.Network.Channel = f.Channel
		case "backend":
			c.Radio.Backend = f.Backend
		case "air":
			c.Radio.AirURL = f.AirURL
		case "addr":
			c.Radio.Addr = f.Addr
		case "instance":
			c.Radio.Instance = f.Instance
		case "mqtt":
			c.Telemetry.MQTTURL = f.MQTTURL
		}
	})
}
