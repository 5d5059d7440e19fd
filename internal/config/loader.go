// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/mediablock/internal/log"
)

// Environment variable names.
const (
	EnvListen          = "MEDIABLOCK_LISTEN"
	EnvDataDir         = "MEDIABLOCK_DATA"
	EnvLogLevel        = "MEDIABLOCK_LOG_LEVEL"
	EnvStoreBackend    = "MEDIABLOCK_STORE_BACKEND"
	EnvStoreDir        = "MEDIABLOCK_STORE_DIR"
	EnvMediaCMSTimeout = "MEDIABLOCK_MEDIACMS_TIMEOUT"
	EnvCacheBackend    = "MEDIABLOCK_CACHE_BACKEND"
	EnvCacheTTL        = "MEDIABLOCK_CACHE_TTL"
	EnvRedisAddr       = "MEDIABLOCK_REDIS_ADDR"
	EnvRedisPassword   = "MEDIABLOCK_REDIS_PASSWORD"
	EnvGradeBackend    = "MEDIABLOCK_GRADE_BACKEND"
	EnvGradeWebhook    = "MEDIABLOCK_GRADE_WEBHOOK_URL"
	EnvGradeToken      = "MEDIABLOCK_GRADE_WEBHOOK_TOKEN"
	EnvGradeChannel    = "MEDIABLOCK_GRADE_CHANNEL"
	EnvJWTSecret       = "MEDIABLOCK_JWT_SECRET"
	EnvRateLimit       = "MEDIABLOCK_RATE_LIMIT"
	EnvOTelEnabled     = "MEDIABLOCK_OTEL_ENABLED"
	EnvOTelExporter    = "MEDIABLOCK_OTEL_EXPORTER"
	EnvOTelEndpoint    = "MEDIABLOCK_OTEL_ENDPOINT"
	EnvDefaultMediaURL = "MEDIABLOCK_DEFAULT_MEDIA_URL"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	envFile    string
	version    string
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// WithEnvFile makes Load read KEY=VALUE pairs from path before applying the
// environment. Variables already set in the process environment win.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Path returns the configuration file path (may be empty).
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load env file: %w", err)
		}
	}
	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = cfg.DataDir
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML file with strict parsing.
func (l *Loader) loadFile(path string) (*AppConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg AppConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &AppConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	logger := log.WithComponent("config")

	cfg.Server.ListenAddr = ParseString(EnvListen, cfg.Server.ListenAddr)
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.Server.RateLimitRequests = ParseInt(EnvRateLimit, cfg.Server.RateLimitRequests)

	cfg.Store.Backend = ParseString(EnvStoreBackend, cfg.Store.Backend)
	cfg.Store.Dir = ParseString(EnvStoreDir, cfg.Store.Dir)

	cfg.MediaCMS.Timeout = ParseDuration(EnvMediaCMSTimeout, cfg.MediaCMS.Timeout)

	cfg.Cache.Backend = ParseString(EnvCacheBackend, cfg.Cache.Backend)
	cfg.Cache.TTL = ParseDuration(EnvCacheTTL, cfg.Cache.TTL)
	cfg.Cache.RedisAddr = ParseString(EnvRedisAddr, cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = ParseString(EnvRedisPassword, cfg.Cache.RedisPassword)

	cfg.Grade.Backend = ParseString(EnvGradeBackend, cfg.Grade.Backend)
	cfg.Grade.WebhookURL = ParseString(EnvGradeWebhook, cfg.Grade.WebhookURL)
	cfg.Grade.WebhookToken = ParseString(EnvGradeToken, cfg.Grade.WebhookToken)
	cfg.Grade.RedisChannel = ParseString(EnvGradeChannel, cfg.Grade.RedisChannel)
	if cfg.Grade.RedisAddr == "" {
		cfg.Grade.RedisAddr = cfg.Cache.RedisAddr
	}

	cfg.Auth.JWTSecret = ParseString(EnvJWTSecret, cfg.Auth.JWTSecret)

	cfg.Telemetry.Enabled = ParseBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString(EnvOTelExporter, cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)

	cfg.Block.DefaultMediaURL = ParseString(EnvDefaultMediaURL, cfg.Block.DefaultMediaURL)

	if cfg.Server.RateLimitWindow == 0 {
		logger.Debug().Msg("rate limit window unset, using one minute")
		cfg.Server.RateLimitWindow = time.Minute
	}
}
