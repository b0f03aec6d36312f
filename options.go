package chanrelay

import "time"

// AuthMode selects whether Sub requires a matching per-channel token.
type AuthMode int

const (
	// AuthNone admits any Sub call regardless of the token parameter.
	AuthNone AuthMode = iota
	// AuthToken requires Sub's token parameter to match the channel's
	// signed token.
	AuthToken
)

// Config holds the tunables a server embedding Engine is responsible for
// sourcing, whether from flags, a config file, or hardcoded defaults --
// the core itself never parses configuration on its own.
type Config struct {
	MaxChannels              int
	MaxSubscribersPerChannel int
	MaxMessages              int
	ChannelIdles             int
	PollingIdles             int
	PollingTimeout           int
	ChannelTimeout           int
	CheckInterval            time.Duration
	Auth                     AuthMode
	JSONPCallback            string
}

// defaultConfig mirrors the scale of the original implementation's
// ServerConfig defaults: a modest fixed pool, a short resume window, and a
// check interval fast enough to feel responsive without busy-looping.
func defaultConfig() Config {
	return Config{
		MaxChannels:             1024,
		MaxSubscribersPerChannel: 100,
		MaxMessages:             8,
		ChannelIdles:            300,
		PollingIdles:            25,
		PollingTimeout:          25,
		ChannelTimeout:          300,
		CheckInterval:           1 * time.Second,
		Auth:                    AuthNone,
		JSONPCallback:           defaultJSONPCallback,
	}
}

// Option configures an Engine at construction time, following the same
// functional-options pattern as mroth/sseserver's ServerOption /
// WithCORSAllowOrigin.
type Option func(*Config)

func WithMaxChannels(n int) Option {
	return func(c *Config) { c.MaxChannels = n }
}

func WithMaxSubscribersPerChannel(n int) Option {
	return func(c *Config) { c.MaxSubscribersPerChannel = n }
}

func WithMaxMessages(n int) Option {
	return func(c *Config) { c.MaxMessages = n }
}

func WithChannelIdles(n int) Option {
	return func(c *Config) { c.ChannelIdles = n }
}

func WithPollingIdles(n int) Option {
	return func(c *Config) { c.PollingIdles = n }
}

func WithPollingTimeout(seconds int) Option {
	return func(c *Config) { c.PollingTimeout = seconds }
}

func WithChannelTimeout(seconds int) Option {
	return func(c *Config) { c.ChannelTimeout = seconds }
}

func WithCheckInterval(d time.Duration) Option {
	return func(c *Config) { c.CheckInterval = d }
}

func WithAuth(mode AuthMode) Option {
	return func(c *Config) { c.Auth = mode }
}

func WithJSONPCallback(name string) Option {
	return func(c *Config) { c.JSONPCallback = name }
}
