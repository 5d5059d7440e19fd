// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/mediablock/internal/config"
	mblog "github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/version"
)

// maskURL strips credentials from a URL before it is logged: user info is
// dropped and secret-looking query values are replaced.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			switch strings.ToLower(key) {
			case "token", "access_token", "api_key", "password":
				q.Set(key, redacted)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "buildenv":
			os.Exit(runBuildenvCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		case "version":
			printVersion()
			os.Exit(0)
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	envFile := flag.String("env-file", ".env", "optional KEY=VALUE file applied before the environment")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Safe defaults until the configuration is loaded.
	mblog.Configure(mblog.Config{
		Level:   "info",
		Service: "mediablock",
		Version: version.Version,
	})
	logger := mblog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(effectiveConfigPath, version.Version).WithEnvFile(strings.TrimSpace(*envFile))
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(mblog.FieldEvent, "config.load_failed").
			Str(mblog.FieldPath, effectiveConfigPath).
			Msg("failed to load configuration")
	}

	mblog.Configure(mblog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str(mblog.FieldEvent, "config.loaded").
			Str(mblog.FieldSource, "file").
			Str(mblog.FieldPath, effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(mblog.FieldEvent, "config.loaded").
			Str(mblog.FieldSource, "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := serve(ctx, cfg, loader); err != nil {
		logger.Fatal().
			Err(err).
			Str(mblog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}

func printVersion() {
	fmt.Println("mediablock " + version.String())
}

// resolveDefaultConfigPath returns ${MEDIABLOCK_DATA}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}
