package loghub

import (
	"errors"

	"github.com/rmacdonaldsmith/loghub-go/internal/history"
)

// ErrInvalidRetainSize is returned when max_retain_size is negative
var ErrInvalidRetainSize = errors.New("max retain size cannot be negative")

// Config represents configuration for a Hub. It is fixed at construction time.
type Config struct {
	// MaxRetainSize is the number of events kept in history (default 4096)
	MaxRetainSize int `yaml:"max_retain_size"`
}

// NewConfig creates a hub configuration with safe defaults
func NewConfig() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills in zero values
func (c *Config) SetDefaults() {
	if c.MaxRetainSize == 0 {
		c.MaxRetainSize = history.DefaultCapacity
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.MaxRetainSize < 0 {
		return ErrInvalidRetainSize
	}
	return nil
}

// WithMaxRetainSize sets the history capacity
func (c *Config) WithMaxRetainSize(n int) *Config {
	c.MaxRetainSize = n
	return c
}
