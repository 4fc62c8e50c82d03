package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration with environment variable support
type Config struct {
	Server        ServerConfig        `json:"server" mapstructure:"server"`
	Database      DatabaseConfig      `json:"database" mapstructure:"database"`
	Search        SearchConfig        `json:"search" mapstructure:"search"`
	Monitoring    MonitoringConfig    `json:"monitoring" mapstructure:"monitoring"`
	Observability ObservabilityConfig `json:"observability" mapstructure:"observability"`
}

type ServerConfig struct {
	Port                    string        `json:"port" mapstructure:"port"`
	ReadTimeout             time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `json:"graceful_shutdown_timeout" mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Host               string        `json:"host" mapstructure:"host"`
	Port               string        `json:"port" mapstructure:"port"`
	User               string        `json:"user" mapstructure:"user"`
	Password           string        `json:"password" mapstructure:"password"`
	Name               string        `json:"name" mapstructure:"name"`
	MaxConnections     int           `json:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections" mapstructure:"max_idle_connections"`
	ConnectionLifetime time.Duration `json:"connection_lifetime" mapstructure:"connection_lifetime"`
}

// SearchConfig describes the outbound search page the location buttons link to
type SearchConfig struct {
	Path          string `json:"path" mapstructure:"path"`
	CountFootnote string `json:"count_footnote" mapstructure:"count_footnote"`
}

type MonitoringConfig struct {
	LogLevel         string        `json:"log_level" mapstructure:"log_level"`
	EnablePrometheus bool          `json:"enable_prometheus" mapstructure:"enable_prometheus"`
	MetricsInterval  time.Duration `json:"metrics_interval" mapstructure:"metrics_interval"`
}

type ObservabilityConfig struct {
	ServiceName    string `json:"service_name" mapstructure:"service_name"`
	ServiceVersion string `json:"service_version" mapstructure:"service_version"`
	LogFormat      string `json:"log_format" mapstructure:"log_format"`
	EnableTracing  bool   `json:"enable_tracing" mapstructure:"enable_tracing"`
}

// Global config instance with mutex for thread safety
var (
	config     *Config
	configMu   sync.RWMutex
	configPath string
)

// LoadConfig loads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment
// variables still apply.
func LoadConfig(configFile string) (*Config, error) {
	configPath = configFile

	viper.SetConfigFile(configFile)
	viper.SetConfigType("json")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LISTING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if _, err := os.Stat(configFile); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	configMu.Lock()
	config = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the current configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// ReloadConfig reloads configuration from file
func ReloadConfig() error {
	if configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	_, err := LoadConfig(configPath)
	return err
}

// applyReloadedConfig pushes the freshly loaded configuration to the
// consumers that honor hot reloads. Only the logging settings can change
// at runtime; server and database settings require a restart.
func applyReloadedConfig() {
	cfg := GetConfig()
	if cfg == nil {
		return
	}

	if err := InitLogger(
		cfg.Observability.ServiceName,
		cfg.Observability.ServiceVersion,
		cfg.Monitoring.LogLevel,
		cfg.Observability.LogFormat,
	); err != nil {
		GetLogger().Error("Failed to apply reloaded logging config: " + err.Error())
	}
}

// WatchConfig watches for config file changes and reloads automatically
func WatchConfig() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					if err := ReloadConfig(); err != nil {
						GetLogger().Error("Failed to reload config: " + err.Error())
					} else {
						applyReloadedConfig()
						GetLogger().Info("Config reloaded successfully")
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				GetLogger().Error("Config watcher error: " + err.Error())
			}
		}
	}()

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", ":8087")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.graceful_shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "3306")
	viper.SetDefault("database.user", "root")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "listings")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_lifetime", "5m")

	// Search defaults
	viper.SetDefault("search.path", "/idx")
	viper.SetDefault("search.count_footnote",
		"The number in parentheses is the number of active listings in each location.")

	// Monitoring defaults
	viper.SetDefault("monitoring.log_level", "info")
	viper.SetDefault("monitoring.enable_prometheus", true)
	viper.SetDefault("monitoring.metrics_interval", "15s")

	// Observability defaults
	viper.SetDefault("observability.service_name", "listing-locations")
	viper.SetDefault("observability.service_version", "1.0.0")
	viper.SetDefault("observability.log_format", "json")
	viper.SetDefault("observability.enable_tracing", false)
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return fmt.Errorf("database host and name are required")
	}

	if cfg.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max_connections must be greater than 0")
	}

	if cfg.Search.Path == "" {
		return fmt.Errorf("search path is required")
	}

	return nil
}

// GetEnvString gets environment variable with fallback
func GetEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvBool gets environment variable as bool with fallback
func GetEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}
