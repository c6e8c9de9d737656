// Package config assembles the server configuration from a YAML file, the
// environment and command-line flags, in that order of precedence (flags win).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/loghub-go/internal/console"
	"github.com/rmacdonaldsmith/loghub-go/internal/httpapi"
	"github.com/rmacdonaldsmith/loghub-go/internal/loghub"
	"github.com/rmacdonaldsmith/loghub-go/internal/metrics"
	"github.com/rmacdonaldsmith/loghub-go/internal/zaplog"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "LOGHUB_"

// Config is the full runtime configuration tree
type Config struct {
	Hub     loghub.Config  `yaml:"hub"`
	HTTP    httpapi.Config `yaml:"http"`
	GRPC    console.Config `yaml:"grpc"`
	Logging zaplog.Config  `yaml:"logging"`
	Metrics metrics.Config `yaml:"metrics"`
}

// Load reads the optional YAML file at path, then applies .env and LOGHUB_*
// overrides. Defaults are not applied; call SetDefaults after flags.
func Load(path string) (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := c.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	c.applyEnv()
	return c, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Hub.MaxRetainSize = getInt("MAX_RETAIN_SIZE", c.Hub.MaxRetainSize)

	c.HTTP.ListenAddress = getenv("HTTP_LISTEN", c.HTTP.ListenAddress)
	c.HTTP.SecretKey = getenv("SECRET_KEY", c.HTTP.SecretKey)
	c.HTTP.NoAuth = getBool("NO_AUTH", c.HTTP.NoAuth)
	c.HTTP.AdminPasswordHash = getenv("ADMIN_PASSWORD_HASH", c.HTTP.AdminPasswordHash)
	c.HTTP.TokenTTL = getDuration("TOKEN_TTL", c.HTTP.TokenTTL)

	c.GRPC.Enabled = getBool("GRPC_ENABLED", c.GRPC.Enabled)
	c.GRPC.ListenAddress = getenv("GRPC_LISTEN", c.GRPC.ListenAddress)

	c.Logging.Level = getenv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getenv("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getenv("LOG_FILE", c.Logging.File)

	c.Metrics.Enabled = getBool("METRICS_ENABLED", c.Metrics.Enabled)
}

// SetDefaults fills in zero values in every section
func (c *Config) SetDefaults() {
	c.Hub.SetDefaults()
	c.HTTP.SetDefaults()
	c.GRPC.SetDefaults()
	c.Logging.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate validates every section
func (c *Config) Validate() error {
	if err := c.Hub.Validate(); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.GRPC.Validate(); err != nil {
		return fmt.Errorf("grpc: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func getenv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if val == "" {
		return def
	}
	return val
}

func getInt(key string, def int) int {
	val := getenv(key, "")
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}

func getBool(key string, def bool) bool {
	val := getenv(key, "")
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func getDuration(key string, def time.Duration) time.Duration {
	val := getenv(key, "")
	if val == "" {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return parsed
}
