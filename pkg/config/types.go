package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent chatlink configuration stored as
// config.toml in the .chatlink/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Bridge  BridgeConfig `toml:"bridge"`
	Mock    MockConfig   `toml:"mock"`
	Events  EventsConfig `toml:"events"`
}

// BridgeConfig holds settings for connecting to the bridge service.
type BridgeConfig struct {
	// Target is the bridge base URL (scheme + host + port).
	Target string `toml:"target,omitempty"`

	// UserID is sent on chat requests when the caller supplies none.
	UserID string `toml:"user_id,omitempty"`

	// Timeout is a duration string bounding each request (e.g. "5m").
	Timeout string `toml:"timeout,omitempty"`

	// RetryMax is the retry budget for non-streaming calls.
	RetryMax uint `toml:"retry_max,omitempty"`
}

// TimeoutDuration parses the configured timeout. A missing or malformed
// value yields zero, which clients treat as "use the built-in default".
func (b BridgeConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// MockConfig holds mock bridge server settings.
type MockConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig holds turn event publishing settings.
type EventsConfig struct {
	Enabled bool `toml:"enabled,omitempty"`

	// Brokers is a comma-separated list of Kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`

	Topic string `toml:"topic,omitempty"`
}

// BrokerList splits the comma-separated broker string into addresses,
// dropping empty entries.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"bridge.target": {
		get: func(c *Config) string { return c.Bridge.Target },
		set: func(c *Config, v string) error { c.Bridge.Target = v; return nil },
	},
	"bridge.user_id": {
		get: func(c *Config) string { return c.Bridge.UserID },
		set: func(c *Config, v string) error { c.Bridge.UserID = v; return nil },
	},
	"bridge.timeout": {
		get: func(c *Config) string { return c.Bridge.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for bridge.timeout: %w", err)
			}
			c.Bridge.Timeout = v
			return nil
		},
	},
	"bridge.retry_max": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Bridge.RetryMax), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for bridge.retry_max: %w", err)
			}
			c.Bridge.RetryMax = uint(n)
			return nil
		},
	},
	"mock.listen": {
		get: func(c *Config) string { return c.Mock.Listen },
		set: func(c *Config, v string) error { c.Mock.Listen = v; return nil },
	},
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for events.enabled: %w", err)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
