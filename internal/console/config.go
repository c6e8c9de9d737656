package console

import (
	"errors"
	"time"
)

// ErrInvalidListenAddress is returned when the console is enabled without an address
var ErrInvalidListenAddress = errors.New("listen address cannot be empty")

// Config holds configuration for the gRPC console
type Config struct {
	Enabled          bool          `yaml:"enabled"`
	ListenAddress    string        `yaml:"listen"`
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
	MaxMessageSize   int           `yaml:"max_message_size"`
	KeepaliveTime    time.Duration `yaml:"keepalive_time"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Enabled && c.ListenAddress == "" {
		return ErrInvalidListenAddress
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":9090"
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4 * 1024 * 1024 // 4MB
	}
	if c.KeepaliveTime <= 0 {
		c.KeepaliveTime = 30 * time.Second
	}
}
