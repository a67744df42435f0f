package config

import "time"

// Config represents the main configuration structure for the scan service.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// RegistryConfig controls where pattern bundles are fetched from and
// how long a fetched bundle is served before a refresh.
type RegistryConfig struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	BundleTTL    time.Duration `yaml:"bundle_ttl" mapstructure:"bundle_ttl"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	Offline      bool          `yaml:"offline" mapstructure:"offline"`
}

// ScanConfig contains matching configuration.
type ScanConfig struct {
	MinSeverity string `yaml:"min_severity" mapstructure:"min_severity"` // Warn, High, or Critical
}

// CacheConfig contains the optional Redis result cache configuration.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// EventsConfig contains WebSocket event hub configuration.
type EventsConfig struct {
	Enabled           bool     `yaml:"enabled" mapstructure:"enabled"`
	Path              string   `yaml:"path" mapstructure:"path"`
	AllowedOrigins    []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	BroadcastFindings bool     `yaml:"broadcast_findings" mapstructure:"broadcast_findings"`
	BroadcastRequests bool     `yaml:"broadcast_requests" mapstructure:"broadcast_requests"`
}

// RateLimitConfig contains per-client rate limiting configuration.
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int  `yaml:"burst" mapstructure:"burst"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Registry: RegistryConfig{
			URL:          "https://registry.sigil-protocol.org",
			BundleTTL:    5 * time.Minute,
			FetchTimeout: 5 * time.Second,
		},
		Scan: ScanConfig{
			MinSeverity: "High",
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			TTL:            time.Minute,
			KeyPrefix:      "sigil:scan",
			MaxConnections: 10,
			MinIdleConns:   2,
		},
		Events: EventsConfig{
			Enabled:           true,
			Path:              "/ws",
			AllowedOrigins:    []string{"*"},
			BroadcastFindings: true,
			BroadcastRequests: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerMin: 600,
			Burst:          60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
