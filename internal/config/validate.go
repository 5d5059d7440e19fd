// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks field constraints and the rules that span several fields.
func Validate(cfg AppConfig) error {
	var problems []string

	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	switch cfg.Grade.Backend {
	case "http":
		if cfg.Grade.WebhookURL == "" {
			problems = append(problems, "grade.webhookURL: required when grade.backend is http")
		}
	case "redis":
		if cfg.Grade.RedisAddr == "" {
			problems = append(problems, "grade.redisAddr: required when grade.backend is redis")
		}
		if cfg.Grade.RedisChannel == "" {
			problems = append(problems, "grade.redisChannel: required when grade.backend is redis")
		}
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisAddr == "" {
		problems = append(problems, "cache.redisAddr: required when cache.backend is redis")
	}
	if cfg.Store.Backend != "memory" && cfg.Store.Dir == "" && cfg.DataDir == "" {
		problems = append(problems, "store.dir: required for persistent backends")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%d invalid setting(s): %s", len(problems), strings.Join(problems, "; "))
	}
	return nil
}
