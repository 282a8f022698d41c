package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Dispatch  DispatchConfig
	Broadcast BroadcastConfig
	Ingest    IngestConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StoreConfig holds event persistence configuration. Backend selects the
// implementation: "memory" for dev mode, "elastic" for production.
type StoreConfig struct {
	Backend         string   `envconfig:"STORE_BACKEND" default:"memory"`
	ElasticAddrs    []string `envconfig:"ELASTIC_ADDRS" default:"http://localhost:9200"`
	ElasticIndex    string   `envconfig:"ELASTIC_INDEX" default:"devpulse-events"`
	MemoryMaxEvents int      `envconfig:"MEMORY_MAX_EVENTS" default:"100000"`
}

// DispatchConfig holds async upstream delivery configuration. Used by
// producer processes that forward events to a collector over WebSocket.
type DispatchConfig struct {
	Enabled       bool          `envconfig:"DISPATCH_ENABLED" default:"false"`
	UpstreamURL   string        `envconfig:"DISPATCH_UPSTREAM_URL" default:"ws://localhost:8000/ws/ingest"`
	QueueCapacity int           `envconfig:"DISPATCH_QUEUE_CAPACITY" default:"1024"`
	BackoffBase   time.Duration `envconfig:"DISPATCH_BACKOFF_BASE" default:"100ms"`
	BackoffMax    time.Duration `envconfig:"DISPATCH_BACKOFF_MAX" default:"30s"`
	DrainGrace    time.Duration `envconfig:"DISPATCH_DRAIN_GRACE" default:"5s"`
}

// BroadcastConfig holds subscriber fan-out configuration.
type BroadcastConfig struct {
	PublishTimeout time.Duration `envconfig:"BROADCAST_PUBLISH_TIMEOUT" default:"5s"`
}

// IngestConfig holds event field budgets.
type IngestConfig struct {
	MaxFieldBytes      int `envconfig:"INGEST_MAX_FIELD_BYTES" default:"4096"`
	MaxLocals          int `envconfig:"INGEST_MAX_LOCALS" default:"64"`
	MaxStackFrames     int `envconfig:"INGEST_MAX_STACK_FRAMES" default:"128"`
	MaxStackFrameBytes int `envconfig:"INGEST_MAX_STACK_FRAME_BYTES" default:"1024"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds ingest rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	GlobalRPS         int  `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"1000"`
	GlobalBurst       int  `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"2000"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Store: StoreConfig{
			Backend:         "memory",
			ElasticAddrs:    []string{"http://localhost:9200"},
			ElasticIndex:    "devpulse-events",
			MemoryMaxEvents: 100000,
		},
		Dispatch: DispatchConfig{
			Enabled:       false,
			UpstreamURL:   "ws://localhost:8000/ws/ingest",
			QueueCapacity: 1024,
			BackoffBase:   100 * time.Millisecond,
			BackoffMax:    30 * time.Second,
			DrainGrace:    5 * time.Second,
		},
		Broadcast: BroadcastConfig{
			PublishTimeout: 5 * time.Second,
		},
		Ingest: IngestConfig{
			MaxFieldBytes:      4096,
			MaxLocals:          64,
			MaxStackFrames:     128,
			MaxStackFrameBytes: 1024,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			GlobalRPS:         1000,
			GlobalBurst:       2000,
			Enabled:           true,
		},
	}
}
