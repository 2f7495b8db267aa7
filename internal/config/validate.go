package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// validLevels are the accepted log.level values.
var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks cfg. It returns an error describing every invalid value
// found, or nil if all values are valid.
func Validate(cfg Config) error {
	var errs []string

	if cfg.IniFile == "" || !filepath.IsAbs(cfg.IniFile) {
		errs = append(errs, fmt.Sprintf("ini_file: must be an absolute path, got %q", cfg.IniFile))
	}
	if cfg.LockTimeout < 0 {
		errs = append(errs, fmt.Sprintf("lock_timeout: must not be negative, got %s", cfg.LockTimeout))
	}

	if !contains(validLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, fmt.Sprintf(
			"log.level: invalid value %q (allowed: %s)",
			cfg.Log.Level, strings.Join(validLevels, ", ")))
	}
	if cfg.Log.File != "" && cfg.Log.MaxSizeMB < 1 {
		errs = append(errs, fmt.Sprintf("log.max_size_mb: must be a positive integer, got %d", cfg.Log.MaxSizeMB))
	}
	if cfg.Log.MaxBackups < 0 {
		errs = append(errs, fmt.Sprintf("log.max_backups: must not be negative, got %d", cfg.Log.MaxBackups))
	}

	if cfg.Service.Name == "" {
		errs = append(errs, "service.name: must not be empty")
	}
	if len(cfg.Service.Command) == 0 {
		errs = append(errs, "service.command: must not be empty")
	}
	if cfg.Service.StopPollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("service.stop_poll_interval: must be positive, got %s", cfg.Service.StopPollInterval))
	}
	if cfg.Service.StopMaxPolls < 1 {
		errs = append(errs, fmt.Sprintf("service.stop_max_polls: must be a positive integer, got %d", cfg.Service.StopMaxPolls))
	}
	for _, kv := range cfg.Service.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			errs = append(errs, fmt.Sprintf("service.env: expected KEY=VALUE, got %q", kv))
		}
	}

	if cfg.Status.RTSPPort < 1 || cfg.Status.RTSPPort > 65535 {
		errs = append(errs, fmt.Sprintf("status.rtsp_port: must be 1-65535, got %d", cfg.Status.RTSPPort))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
