// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/mediablock/internal/config"
	"github.com/ManuGH/mediablock/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if cfg.Store.Backend != "memory" {
		if err := checkDataDir(logger, cfg.Store.Dir); err != nil {
			return fmt.Errorf("data directory check failed: %w", err)
		}
	}
	if err := checkListenAddr(cfg.Server.ListenAddr); err != nil {
		return err
	}
	if err := checkDefaultMediaURL(cfg.Block.DefaultMediaURL); err != nil {
		return err
	}

	if cfg.Store.Backend == "memory" {
		logger.Warn().
			Str("store_backend", cfg.Store.Backend).
			Msg("in-memory store; student progress is lost on restart")
	}
	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.Store.Dir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", dataDir).
			Msg("data directory is under temp; progress may be lost on reboot")
	}

	logger.Info().Str(log.FieldEvent, "startup.checked").Msg("startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	return nil
}

func checkDefaultMediaURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid default media URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("default media URL scheme must be http or https, got: %s", u.Scheme)
	}
	return nil
}
