// Package config loads the service configuration from .env, an optional YAML
// file and TASKING_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TASKING_DB_HOST
const EnvPrefix = "TASKING"

// DefaultConfigFile is read from the working directory when no path is given
const DefaultConfigFile = "tasking.yaml"

// DBConfig holds the store connection settings
type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLEnabled bool   `mapstructure:"ssl_enabled"`
	// Path is the SQLite file used by the sqlite driver
	Path        string `mapstructure:"path"`
	LogLevel    string `mapstructure:"log_level"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SweepConfig controls the stale lock sweep
type SweepConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Schedule    string        `mapstructure:"schedule"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// SplitConfig holds the thresholds below which a task cannot be split
type SplitConfig struct {
	MinAreaM2 float64 `mapstructure:"min_area_m2"`
	MaxZoom   int     `mapstructure:"max_zoom"`
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Config is the top level service configuration
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	DB        DBConfig        `mapstructure:"db"`
	Server    ServerConfig    `mapstructure:"server"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Split     SplitConfig     `mapstructure:"split"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "tasking")
	v.SetDefault("db.ssl_enabled", false)
	v.SetDefault("db.path", "tasking.db")
	v.SetDefault("db.log_level", "warn")
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("server.port", 8080)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@every 5m")
	v.SetDefault("sweep.lock_timeout", 2*time.Hour)

	v.SetDefault("split.min_area_m2", 25000.0)
	v.SetDefault("split.max_zoom", 18)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.service_name", "tasking")
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Load reads the configuration. A missing .env or config file is not an error;
// an explicitly named file that does not exist is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case !explicit && (errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)):
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot check by type
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Sweep.Enabled && c.Sweep.Schedule == "" {
		return errors.New("sweep.schedule is required when the sweep is enabled")
	}
	if c.Sweep.LockTimeout <= 0 {
		return errors.New("sweep.lock_timeout must be positive")
	}
	if c.Split.MinAreaM2 < 0 || c.Split.MaxZoom <= 0 {
		return errors.New("split thresholds must be positive")
	}
	return nil
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
