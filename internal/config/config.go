// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads and validates the block service configuration.
//
// Precedence is ENV > YAML file > defaults. The file is parsed strictly
// (unknown keys are rejected) and merged onto the defaults with mergo, so a
// partial file only overrides the keys it sets.
package config

import "time"

// DefaultMediaURL is the video shown by a freshly placed block.
const DefaultMediaURL = "https://deic.mediacms.io/view?m=6ui2LMmEs"

// AppConfig is the root configuration of the daemon.
type AppConfig struct {
	Version    string `yaml:"-"`
	LogLevel   string `yaml:"logLevel" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	LogService string `yaml:"logService"`
	DataDir    string `yaml:"dataDir" validate:"required"`

	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	MediaCMS  MediaCMSConfig  `yaml:"mediacms"`
	Cache     CacheConfig     `yaml:"cache"`
	Grade     GradeConfig     `yaml:"grade"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Block     BlockConfig     `yaml:"block"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listenAddr" validate:"required"`
	ReadTimeout       time.Duration `yaml:"readTimeout" validate:"gte=0"`
	WriteTimeout      time.Duration `yaml:"writeTimeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
	RateLimitRequests int           `yaml:"rateLimitRequests" validate:"gte=0"`
	RateLimitWindow   time.Duration `yaml:"rateLimitWindow" validate:"gte=0"`
	// TrustedProxies, when set, keys the rate limiter by X-Real-IP / X-Forwarded-For.
	TrustedProxies string `yaml:"trustedProxies"`
	// FrameAncestors is the CSP frame-ancestors source list of block pages.
	FrameAncestors string `yaml:"frameAncestors"`
}

// StoreConfig selects the block state backend.
type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=sqlite badger memory"`
	// Dir holds the database files. Empty means DataDir.
	Dir string `yaml:"dir"`
}

// MediaCMSConfig tunes the outbound MediaCMS API client.
type MediaCMSConfig struct {
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	BreakerThreshold  int           `yaml:"breakerThreshold" validate:"gte=0"`
	BreakerReset      time.Duration `yaml:"breakerReset" validate:"gte=0"`
}

// CacheConfig configures caching of resolved media descriptors.
// A zero TTL disables caching regardless of backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=none memory redis"`
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB" validate:"gte=0"`
}

// GradeConfig selects where grade events are published.
type GradeConfig struct {
	Backend      string        `yaml:"backend" validate:"oneof=log http redis"`
	WebhookURL   string        `yaml:"webhookURL" validate:"omitempty,url"`
	WebhookToken string        `yaml:"webhookToken"`
	RedisAddr    string        `yaml:"redisAddr"`
	RedisChannel string        `yaml:"redisChannel"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
}

// AuthConfig controls how the student identity is derived from requests.
type AuthConfig struct {
	// JWTSecret enables HS256 bearer tokens; the "sub" claim is the user id.
	JWTSecret string `yaml:"jwtSecret"`
	// UserHeader is read when no JWT secret is configured.
	UserHeader string `yaml:"userHeader"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporterType" validate:"omitempty,oneof=grpc http"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate" validate:"gte=0,lte=1"`
}

// BlockConfig holds defaults applied to newly placed blocks.
type BlockConfig struct {
	DefaultMediaURL             string `yaml:"defaultMediaURL" validate:"omitempty,url"`
	DefaultCompletionPercentage int    `yaml:"defaultCompletionPercentage" validate:"gte=0,lte=100"`
	PlayerBaseURL               string `yaml:"playerBaseURL" validate:"omitempty,url"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "mediablock",
		DataDir:    "/var/lib/mediablock",
		Server: ServerConfig{
			ListenAddr:        ":8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
			FrameAncestors:    "'self'",
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		MediaCMS: MediaCMSConfig{
			Timeout:           5 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
			BreakerThreshold:  5,
			BreakerReset:      30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "none",
		},
		Grade: GradeConfig{
			Backend:      "log",
			RedisChannel: "mediablock:grades",
			Timeout:      5 * time.Second,
		},
		Auth: AuthConfig{
			UserHeader: "X-User-ID",
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
		Block: BlockConfig{
			DefaultMediaURL:             DefaultMediaURL,
			DefaultCompletionPercentage: 90,
			PlayerBaseURL:               "https://vjs.zencdn.net/7.20.3",
		},
	}
}
