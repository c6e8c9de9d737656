package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/loghub-go/internal/httpapi"
	"github.com/rmacdonaldsmith/loghub-go/internal/loghub"
)

const sampleYAML = `
hub:
  max_retain_size: 100
http:
  listen: ":8181"
  secret_key: from-file
  token_ttl: 2h
grpc:
  enabled: true
  listen: ":9191"
logging:
  level: debug
  format: console
metrics:
  enabled: true
  path: /prom
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loghub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 100, c.Hub.MaxRetainSize)
	assert.Equal(t, ":8181", c.HTTP.ListenAddress)
	assert.Equal(t, "from-file", c.HTTP.SecretKey)
	assert.Equal(t, 2*time.Hour, c.HTTP.TokenTTL)
	assert.True(t, c.GRPC.Enabled)
	assert.Equal(t, ":9191", c.GRPC.ListenAddress)
	assert.Equal(t, "console", c.Logging.Format)
	assert.Equal(t, "/prom", c.Metrics.Path)
}

func TestLoad_NoFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	c.SetDefaults()

	assert.Equal(t, 4096, c.Hub.MaxRetainSize)
	assert.Equal(t, ":8080", c.HTTP.ListenAddress)
	assert.Equal(t, ":9090", c.GRPC.ListenAddress)
	assert.Equal(t, "/metrics", c.Metrics.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "hub:\n  unknown_key: 1\n"))
	assert.Error(t, err)

	c, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Zero(t, c.Hub.MaxRetainSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("LOGHUB_MAX_RETAIN_SIZE", "7")
	t.Setenv("LOGHUB_SECRET_KEY", "from-env")
	t.Setenv("LOGHUB_NO_AUTH", "true")
	t.Setenv("LOGHUB_GRPC_ENABLED", "false")
	t.Setenv("LOGHUB_TOKEN_TTL", "5m")
	t.Setenv("LOGHUB_LOG_LEVEL", "warn")

	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 7, c.Hub.MaxRetainSize)
	assert.Equal(t, "from-env", c.HTTP.SecretKey)
	assert.True(t, c.HTTP.NoAuth)
	assert.False(t, c.GRPC.Enabled)
	assert.Equal(t, 5*time.Minute, c.HTTP.TokenTTL)
	assert.Equal(t, "warn", c.Logging.Level)
	// untouched by env
	assert.Equal(t, ":8181", c.HTTP.ListenAddress)
}

func TestLoad_InvalidEnvKeepsValue(t *testing.T) {
	t.Setenv("LOGHUB_MAX_RETAIN_SIZE", "lots")
	t.Setenv("LOGHUB_NO_AUTH", "maybe")

	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 100, c.Hub.MaxRetainSize)
	assert.False(t, c.HTTP.NoAuth)
}

func TestFlags_OnlyChangedApplied(t *testing.T) {
	t.Setenv("LOGHUB_HTTP_LISTEN", ":7000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", "x.yaml", "--max-retain-size", "3", "--grpc"}))
	assert.Equal(t, "x.yaml", flags.ConfigFile())

	c, err := Load("")
	require.NoError(t, err)
	flags.Apply(c)

	assert.Equal(t, 3, c.Hub.MaxRetainSize)
	assert.True(t, c.GRPC.Enabled)
	// --listen was not given, so the env value stands
	assert.Equal(t, ":7000", c.HTTP.ListenAddress)
}

func TestConfig_Validate(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	assert.ErrorIs(t, c.Validate(), httpapi.ErrEmptySecretKey)

	c.HTTP.SecretKey = "secret"
	assert.NoError(t, c.Validate())

	c.Hub.MaxRetainSize = -1
	err := c.Validate()
	assert.ErrorIs(t, err, loghub.ErrInvalidRetainSize)
	assert.Contains(t, err.Error(), "hub:")

	c.Hub.MaxRetainSize = 10
	c.Logging.Format = "xml"
	assert.Error(t, c.Validate())
}
