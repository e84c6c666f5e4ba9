package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	Store             StoreConfig   `mapstructure:"store" yaml:"store"`
}

// StoreConfig holds document-store connection values. The API key has no
// default and normally arrives via ROOMCAST_STORE_API_KEY.
type StoreConfig struct {
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey           string        `mapstructure:"api_key" yaml:"api_key"`
	Fabric           string        `mapstructure:"fabric" yaml:"fabric"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	HistoryBatchSize int           `mapstructure:"history_batch_size" yaml:"history_batch_size"`
	CursorTTL        time.Duration `mapstructure:"cursor_ttl" yaml:"cursor_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		Store: StoreConfig{
			Fabric:           "_system",
			RequestTimeout:   10 * time.Second,
			HistoryBatchSize: 100,
			CursorTTL:        30 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Store.BaseURL != "" {
		c.Store.BaseURL = other.Store.BaseURL
	}
	if other.Store.APIKey != "" {
		c.Store.APIKey = other.Store.APIKey
	}
	if other.Store.Fabric != "" {
		c.Store.Fabric = other.Store.Fabric
	}
	if other.Store.RequestTimeout != 0 {
		c.Store.RequestTimeout = other.Store.RequestTimeout
	}
	if other.Store.HistoryBatchSize != 0 {
		c.Store.HistoryBatchSize = other.Store.HistoryBatchSize
	}
	if other.Store.CursorTTL != 0 {
		c.Store.CursorTTL = other.Store.CursorTTL
	}
}
