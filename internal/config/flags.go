package config

import (
	"github.com/spf13/pflag"
)

// Flags binds command-line overrides. Only flags the user actually set are applied.
type Flags struct {
	fs *pflag.FlagSet

	configFile    string
	maxRetainSize int
	httpListen    string
	secretKey     string
	noAuth        bool
	grpcEnabled   bool
	grpcListen    string
	logLevel      string
	logFormat     string
	logFile       string
	metrics       bool
}

// RegisterFlags adds the server flags to fs
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.configFile, "config", "c", "", "Path to a YAML config file")
	fs.IntVar(&f.maxRetainSize, "max-retain-size", 0, "Number of log events kept in history (default 4096)")
	fs.StringVar(&f.httpListen, "listen", "", "HTTP listen address (default :8080)")
	fs.StringVar(&f.secretKey, "secret-key", "", "JWT signing secret")
	fs.BoolVar(&f.noAuth, "no-auth", false, "Disable authentication (development only)")
	fs.BoolVar(&f.grpcEnabled, "grpc", false, "Enable the gRPC console")
	fs.StringVar(&f.grpcListen, "grpc-listen", "", "gRPC console listen address (default :9090)")
	fs.StringVar(&f.logLevel, "log-level", "", "Minimum level written to the log output")
	fs.StringVar(&f.logFormat, "log-format", "", "Log output format: json or console")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to a rotating file instead of stdout")
	fs.BoolVar(&f.metrics, "metrics", false, "Expose Prometheus metrics")
	return f
}

// ConfigFile returns the --config value
func (f *Flags) ConfigFile() string {
	return f.configFile
}

// Apply copies explicitly set flags into c
func (f *Flags) Apply(c *Config) {
	changed := f.fs.Changed

	if changed("max-retain-size") {
		c.Hub.MaxRetainSize = f.maxRetainSize
	}
	if changed("listen") {
		c.HTTP.ListenAddress = f.httpListen
	}
	if changed("secret-key") {
		c.HTTP.SecretKey = f.secretKey
	}
	if changed("no-auth") {
		c.HTTP.NoAuth = f.noAuth
	}
	if changed("grpc") {
		c.GRPC.Enabled = f.grpcEnabled
	}
	if changed("grpc-listen") {
		c.GRPC.ListenAddress = f.grpcListen
	}
	if changed("log-level") {
		c.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		c.Logging.Format = f.logFormat
	}
	if changed("log-file") {
		c.Logging.File = f.logFile
	}
	if changed("metrics") {
		c.Metrics.Enabled = f.metrics
	}
}
