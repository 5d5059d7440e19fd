// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package grade

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ManuGH/mediablock/internal/config"
)

// New builds the configured publisher wrapped with instrumentation.
func New(cfg config.GradeConfig) (*Instrumented, error) {
	switch cfg.Backend {
	case "", "log":
		return Instrument(LogPublisher{}), nil
	case "http":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("grade: http backend requires a webhook URL")
		}
		return Instrument(NewHTTPPublisher(cfg.WebhookURL, cfg.WebhookToken, cfg.Timeout)), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("grade: redis backend requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		})
		return Instrument(NewRedisPublisher(client, cfg.RedisChannel)), nil
	default:
		return nil, fmt.Errorf("unknown grade backend: %s (supported: log, http, redis)", cfg.Backend)
	}
}
