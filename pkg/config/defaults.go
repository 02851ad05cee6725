package config

const (
	defaultBridgeTarget   = "http://127.0.0.1:2026"
	defaultBridgeUserID   = "guest"
	defaultBridgeTimeout  = "5m"
	defaultBridgeRetryMax = 2

	defaultMockListen = "127.0.0.1:2026"

	defaultEventsTopic = "chatlink.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Bridge: BridgeConfig{
			Target:   defaultBridgeTarget,
			UserID:   defaultBridgeUserID,
			Timeout:  defaultBridgeTimeout,
			RetryMax: defaultBridgeRetryMax,
		},
		Mock: MockConfig{
			Listen: defaultMockListen,
		},
		Events: EventsConfig{
			Enabled: false,
			Topic:   defaultEventsTopic,
		},
	}
}
