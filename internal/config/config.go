package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/sigil-scan/")
	viper.AddConfigPath("$HOME/.sigil-scan/")

	// Environment variable overrides
	viper.SetEnvPrefix("SIGIL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The canonical variable names predate the sectioned config layout,
	// so they are bound explicitly on top of the automatic mapping.
	_ = viper.BindEnv("registry.url", "SIGIL_REGISTRY_URL")
	_ = viper.BindEnv("registry.offline", "SIGIL_OFFLINE")
	_ = viper.BindEnv("scan.min_severity", "SIGIL_MIN_SEVERITY")

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// SIGIL_BUNDLE_TTL is bare seconds in the wild; duration strings are
	// accepted too. It is applied after unmarshal because viper's duration
	// hook cannot decode a unitless integer.
	if v := os.Getenv("SIGIL_BUNDLE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.Registry.BundleTTL = time.Duration(secs) * time.Second
		} else if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Registry.BundleTTL = d
		}
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Registry.URL == "" && !config.Registry.Offline {
		return fmt.Errorf("registry url must be set unless offline mode is enabled")
	}

	switch config.Scan.MinSeverity {
	case "Warn", "High", "Critical":
	default:
		return fmt.Errorf("invalid min severity: %s (must be Warn, High, or Critical)", config.Scan.MinSeverity)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes.
func Watch(callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
