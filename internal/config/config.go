package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the blogd server.
type ServerConfig struct {
	Addr            string `yaml:"addr"`               // Listen address (default ":3002")
	LogLevel        string `yaml:"log_level"`          // Log level: debug, info, warn, error
	LogFormat       string `yaml:"log_format"`         // Log format: text, json
	DBPath          string `yaml:"db_path"`            // SQLite database path (":memory:" for testing)
	SecurityLog     string `yaml:"security_log"`       // Optional file path for the JSON security log
	SessionBackend  string `yaml:"session_backend"`    // "sqlite" (default) or "redis"
	RedisAddr       string `yaml:"redis_addr"`         // Redis address when session_backend is "redis"
	MaxDBConns      int    `yaml:"max_db_conns"`       // Connection pool limit (default 10)
	DBAcquireWaitMS int    `yaml:"db_acquire_wait_ms"` // Bounded pool wait before UNAVAILABLE (default 2000)
	SecureCookies   bool   `yaml:"secure_cookies"`     // Set the Secure attribute on session cookies
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":3002",
		LogLevel:        "info",
		LogFormat:       "text",
		SessionBackend:  "sqlite",
		RedisAddr:       "localhost:6379",
		MaxDBConns:      10,
		DBAcquireWaitMS: 2000,
	}
}

// Load reads a YAML config file over the given base config. Fields absent
// from the file keep their base values.
func Load(path string, base ServerConfig) (ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
