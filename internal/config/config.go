// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Altimeter AltimeterConfig `mapstructure:"altimeter"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AltimeterConfig represents altimeter driver configuration.
//
// The three port options carry the exact names, types and defaults that
// supervisory tooling depends on; they must not be renamed.
type AltimeterConfig struct {
	PortEnabled  bool   `mapstructure:"altimeter_port_enabled"`
	PortBaudrate int    `mapstructure:"altimeter_port_baudrate"`
	Port         string `mapstructure:"altimeter_port"`

	ReadInterval time.Duration `mapstructure:"read_interval"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	BackoffMin   time.Duration `mapstructure:"backoff_min"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/altimeter-service")

	// Environment variable support
	viper.SetEnvPrefix("ALTIMETER_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file; a missing file is fine, defaults and env cover it
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Watch re-reads the config file on change and delivers the freshly decoded
// configuration to fn. Decode or validation failures are reported to fn as an
// error; the caller keeps its previous configuration in that case.
func Watch(fn func(*Config, error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		var config Config
		if err := viper.Unmarshal(&config); err != nil {
			fn(nil, fmt.Errorf("unable to decode config: %w", err))
			return
		}
		if err := validate(&config); err != nil {
			fn(nil, fmt.Errorf("config validation failed: %w", err))
			return
		}
		fn(&config, nil)
	})
	viper.WatchConfig()
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8086")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// Altimeter defaults: the three port options come from the option schema
	// so the contract is defined in exactly one place
	for _, opt := range Schema.Options {
		viper.SetDefault("altimeter."+opt.Name, opt.Default)
	}
	viper.SetDefault("altimeter.read_interval", "250ms")
	viper.SetDefault("altimeter.read_timeout", "2s")
	viper.SetDefault("altimeter.backoff_min", "500ms")
	viper.SetDefault("altimeter.backoff_max", "30s")

	// App defaults
	viper.SetDefault("app.name", "altimeter-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	// Validate the port options against the schema
	if _, err := config.Altimeter.Settings(); err != nil {
		return err
	}

	if config.Altimeter.ReadInterval <= 0 {
		return fmt.Errorf("altimeter.read_interval must be positive")
	}
	if config.Altimeter.ReadTimeout <= 0 {
		return fmt.Errorf("altimeter.read_timeout must be positive")
	}
	if config.Altimeter.BackoffMin <= 0 || config.Altimeter.BackoffMax < config.Altimeter.BackoffMin {
		return fmt.Errorf("altimeter backoff range is invalid: min=%s max=%s",
			config.Altimeter.BackoffMin, config.Altimeter.BackoffMax)
	}

	return nil
}

// Settings builds a validated settings snapshot from the altimeter section.
func (c *AltimeterConfig) Settings() (Settings, error) {
	return NewSettings(c.PortEnabled, c.PortBaudrate, c.Port)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
