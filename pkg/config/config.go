// Package config loads the node configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// ESPNODE_* environment variables, then command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/env"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// Radio backends
const (
	BackendSim   = "sim"
	BackendWS    = "ws"
	BackendCYW43 = "cyw43"
)

// ErrInvalidConfig wraps all validation failures.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the node configuration.
type Config struct {
	Network     NetworkConfig     `yaml:"network"`
	Radio       RadioConfig       `yaml:"radio"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	Reporter    ReporterConfig    `yaml:"reporter"`
	Association AssociationConfig `yaml:"association"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// NetworkConfig is the Wi-Fi network to join.
type NetworkConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	// Channel is the fixed radio channel, 0 follows the access point.
	Channel int `yaml:"channel"`
}

// RadioConfig selects and sets up the radio.
type RadioConfig struct {
	Backend string `yaml:"backend"`
	// AirURL is the air hub endpoint used by the ws backend.
	AirURL string `yaml:"air_url"`
	// Addr is the station address of a simulated radio. When empty it is
	// derived from the machine ID and Instance, so nodes sharing a hub
	// need distinct values of either.
	Addr     string `yaml:"addr"`
	Instance string `yaml:"instance"`
	// Broadcast registers the broadcast address as a peer.
	Broadcast bool     `yaml:"broadcast"`
	Peers     []string `yaml:"peers"`
}

// BroadcasterConfig configures the periodic broadcaster.
type BroadcasterConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Payload     string        `yaml:"payload"`
	Destination string        `yaml:"destination"`
}

// ReporterConfig configures the periodic status reporter.
type ReporterConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// AssociationConfig configures the association supervisor.
type AssociationConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Retry         string        `yaml:"retry"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxRetries    int           `yaml:"max_retries"`
}

// TelemetryConfig configures the MQTT uplink. Empty URL disables it.
type TelemetryConfig struct {
	MQTTURL string `yaml:"mqtt_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			SSID:     "P601",
			Password: "00000000",
			Channel:  10,
		},
		Radio: RadioConfig{
			Backend:   BackendSim,
			AirURL:    "ws://localhost:7420/air",
			Instance:  "espnode",
			Broadcast: true,
		},
		Broadcaster: BroadcasterConfig{
			Interval:    time.Second,
			Payload:     "Hello",
			Destination: radio.BroadcastAddr.String(),
		},
		Reporter: ReporterConfig{Interval: time.Second},
		Association: AssociationConfig{
			Timeout:       assoc.DefaultTimeout,
			Retry:         assoc.RetryManual.String(),
			RetryInterval: 5 * time.Second,
		},
	}
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c, nil
}

// Load reads the YAML file (if path is not empty), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	c, err := load(path, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if c, err = Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := c.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides values from ESPNODE_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if val, ok := lookup("ESPNODE_SSID"); ok {
		c.Network.SSID = val
	}
	if val, ok := lookup("ESPNODE_PASSWORD"); ok {
		c.Network.Password = val
	}
	if val, ok := lookup("ESPNODE_CHANNEL"); ok {
		ch, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: ESPNODE_CHANNEL: %v", ErrInvalidConfig, err)
		}
		c.Network.Channel = ch
	}
	if val, ok := lookup("ESPNODE_BACKEND"); ok {
		c.Radio.Backend = val
	}
	if val, ok := lookup("ESPNODE_AIR_URL"); ok {
		c.Radio.AirURL = val
	}
	if val, ok := lookup("ESPNODE_ADDR"); ok {
		c.Radio.Addr = val
	}
	if val, ok := lookup("ESPNODE_INSTANCE"); ok {
		c.Radio.Instance = val
	}
	if val, ok := lookup("ESPNODE_MQTT_URL"); ok {
		c.Telemetry.MQTTURL = val
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Credentials().Validate(); err != nil {
		return fmt.Errorf("%w: network: %v", ErrInvalidConfig, err)
	}
	switch c.Radio.Backend {
	case BackendSim, BackendCYW43:
	case BackendWS:
		if c.Radio.AirURL == "" {
			return fmt.Errorf("%w: radio.air_url required by backend %q", ErrInvalidConfig, BackendWS)
		}
	default:
		return fmt.Errorf("%w: unknown radio backend %q", ErrInvalidConfig, c.Radio.Backend)
	}
	if c.Radio.Addr != "" {
		addr, err := radio.ParseAddr(c.Radio.Addr)
		if err != nil {
			return fmt.Errorf("%w: radio.addr: %v", ErrInvalidConfig, err)
		}
		if addr.IsBroadcast() || addr.IsZero() {
			return fmt.Errorf("%w: radio.addr: %s is not a station address", ErrInvalidConfig, addr)
		}
	} else if c.Radio.Instance == "" {
		return fmt.Errorf("%w: radio.instance required without radio.addr", ErrInvalidConfig)
	}
	for _, peer := range c.Radio.Peers {
		if _, err := radio.ParseAddr(peer); err != nil {
			return fmt.Errorf("%w: radio.peers: %v", ErrInvalidConfig, err)
		}
	}
	if _, err := radio.ParseAddr(c.Broadcaster.Destination); err != nil {
		return fmt.Errorf("%w: broadcaster.destination: %v", ErrInvalidConfig, err)
	}
	if err := radio.CheckPayload([]byte(c.Broadcaster.Payload)); err != nil {
		return fmt.Errorf("%w: broadcaster.payload: %v", ErrInvalidConfig, err)
	}
	if c.Broadcaster.Interval <= 0 || c.Reporter.Interval <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	if _, err := assoc.ParseRetryMode(c.Association.Retry); err != nil {
		return fmt.Errorf("%w: association.retry: %v", ErrInvalidConfig, err)
	}
	if c.Association.Timeout < 0 || c.Association.RetryInterval < 0 || c.Association.MaxRetries < 0 {
		return fmt.Errorf("%w: association values must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Credentials returns the association parameters.
func (c *Config) Credentials() assoc.Credentials {
	return assoc.Credentials{
		SSID:     c.Network.SSID,
		Password: c.Network.Password,
		Channel:  c.Network.Channel,
	}
}

// RetryPolicy returns the association retry policy.
func (c *Config) RetryPolicy() assoc.RetryPolicy {
	mode, _ := assoc.ParseRetryMode(c.Association.Retry)
	return assoc.RetryPolicy{
		Mode:        mode,
		Interval:    c.Association.RetryInterval,
		MaxAttempts: c.Association.MaxRetries,
	}
}

// StationAddr returns the configured station address, or the one derived
// from the machine ID and the instance name.
func (c *Config) StationAddr() (radio.Addr, error) {
	if c.Radio.Addr != "" {
		return radio.ParseAddr(c.Radio.Addr)
	}
	return env.StationAddr(c.Radio.Instance)
}

// Destination returns the broadcaster destination, the broadcast address
// if it's not parsable.
func (c *Config) Destination() radio.Addr {
	addr, err := radio.ParseAddr(c.Broadcaster.Destination)
	if err != nil {
		return radio.BroadcastAddr
	}
	return addr
}

// PeerAddrs returns the fixed peers, skipping invalid ones.
func (c *Config) PeerAddrs() []radio.Addr {
	addrs := make([]radio.Addr, 0, len(c.Radio.Peers))
	for _, peer := range c.Radio.Peers {
		if addr, err := radio.ParseAddr(peer); err == nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
