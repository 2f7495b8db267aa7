// Package config handles lfcfg configuration loading and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/internal/migrate"
	"luckfox-webcfg/internal/service"
	"luckfox-webcfg/internal/status"
)

// Config represents the contents of lfcfg.yaml.
type Config struct {
	IniFile     string          `yaml:"ini_file"`
	LockTimeout time.Duration   `yaml:"lock_timeout"`
	Log         LogConfig       `yaml:"log"`
	Service     ServiceConfig   `yaml:"service"`
	Status      StatusConfig    `yaml:"status"`
	Migration   MigrationConfig `yaml:"migration"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Level      string `yaml:"level"`
}

type ServiceConfig struct {
	Name             string        `yaml:"name"`
	Command          []string      `yaml:"command"`
	Dir              string        `yaml:"dir"`
	Env              []string      `yaml:"env"`
	StopPollInterval time.Duration `yaml:"stop_poll_interval"`
	StopMaxPolls     int           `yaml:"stop_max_polls"`
	ForceKillWait    time.Duration `yaml:"force_kill_wait"`
	StartTimeout     time.Duration `yaml:"start_timeout"`
}

type StatusConfig struct {
	SDMount          string        `yaml:"sd_mount"`
	RecordingDir     string        `yaml:"recording_dir"`
	RecordingTimeout time.Duration `yaml:"recording_timeout"`
	RTSPPort         int           `yaml:"rtsp_port"`
}

type MigrationConfig struct {
	Marker string        `yaml:"marker"`
	Settle time.Duration `yaml:"settle"`
}

// Default returns the default configuration, matching the stock camera
// firmware layout.
func Default() Config {
	spec := service.DefaultSpec()
	policy := service.DefaultStopPolicy()
	src := status.DefaultSources()
	return Config{
		IniFile:     "/userdata/rkipc.ini",
		LockTimeout: inistore.DefaultLockTimeout,
		Log: LogConfig{
			File:       "/mnt/sdcard/web_status.log",
			MaxSizeMB:  2,
			MaxBackups: 1,
			Level:      "info",
		},
		Service: ServiceConfig{
			Name:             spec.Name,
			Command:          spec.Command,
			Dir:              spec.Dir,
			Env:              spec.Env,
			StopPollInterval: policy.PollInterval,
			StopMaxPolls:     policy.MaxPolls,
			ForceKillWait:    policy.ForceWait,
			StartTimeout:     policy.StartTimeout,
		},
		Status: StatusConfig{
			SDMount:          src.SDMount,
			RecordingDir:     src.RecordingDir,
			RecordingTimeout: src.RecordingTimeout,
			RTSPPort:         src.RTSPPort,
		},
		Migration: MigrationConfig{
			Marker: migrate.DefaultMarker,
			Settle: 2 * time.Second,
		},
	}
}

// Load reads the config file at path and applies defaults for missing
// fields. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Write writes the provided configuration to path, replacing any existing
// file atomically.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	return Write(path, Default())
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp) // best effort cleanup
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best effort cleanup
		return err
	}
	return nil
}

// ServiceSpec returns the dependent service description.
func (c Config) ServiceSpec() service.Spec {
	return service.Spec{
		Name:    c.Service.Name,
		Command: c.Service.Command,
		Dir:     c.Service.Dir,
		Env:     c.Service.Env,
	}
}

// StopPolicy returns the bounds for stopping the service.
func (c Config) StopPolicy() service.StopPolicy {
	return service.StopPolicy{
		PollInterval: c.Service.StopPollInterval,
		MaxPolls:     c.Service.StopMaxPolls,
		ForceWait:    c.Service.ForceKillWait,
		StartTimeout: c.Service.StartTimeout,
	}
}

// StatusSources returns where status data is read from.
func (c Config) StatusSources() status.Sources {
	src := status.DefaultSources()
	src.SDMount = c.Status.SDMount
	src.RecordingDir = c.Status.RecordingDir
	src.RecordingTimeout = c.Status.RecordingTimeout
	src.RTSPPort = c.Status.RTSPPort
	return src
}
