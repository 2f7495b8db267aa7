package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Scalar settings are addressed by flat dotted keys like "log.level" for
// the `lfcfg config get/set` commands. List fields (service.command,
// service.env) are edited in the file only.
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"ini_file":                   str(func(c *Config) *string { return &c.IniFile }),
	"lock_timeout":               dur(func(c *Config) *time.Duration { return &c.LockTimeout }),
	"log.file":                   str(func(c *Config) *string { return &c.Log.File }),
	"log.max_size_mb":            num(func(c *Config) *int { return &c.Log.MaxSizeMB }),
	"log.max_backups":            num(func(c *Config) *int { return &c.Log.MaxBackups }),
	"log.level":                  str(func(c *Config) *string { return &c.Log.Level }),
	"service.name":               str(func(c *Config) *string { return &c.Service.Name }),
	"service.dir":                str(func(c *Config) *string { return &c.Service.Dir }),
	"service.stop_poll_interval": dur(func(c *Config) *time.Duration { return &c.Service.StopPollInterval }),
	"service.stop_max_polls":     num(func(c *Config) *int { return &c.Service.StopMaxPolls }),
	"service.force_kill_wait":    dur(func(c *Config) *time.Duration { return &c.Service.ForceKillWait }),
	"service.start_timeout":      dur(func(c *Config) *time.Duration { return &c.Service.StartTimeout }),
	"status.sd_mount":            str(func(c *Config) *string { return &c.Status.SDMount }),
	"status.recording_dir":       str(func(c *Config) *string { return &c.Status.RecordingDir }),
	"status.recording_timeout":   dur(func(c *Config) *time.Duration { return &c.Status.RecordingTimeout }),
	"status.rtsp_port":           num(func(c *Config) *int { return &c.Status.RTSPPort }),
	"migration.marker":           str(func(c *Config) *string { return &c.Migration.Marker }),
	"migration.settle":           dur(func(c *Config) *time.Duration { return &c.Migration.Settle }),
}

// Keys returns every settable key in alphabetical order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the value for key and whether the key exists.
func (c *Config) Get(key string) (string, bool) {
	f, ok := fields[key]
	if !ok {
		return "", false
	}
	return f.get(c), true
}

// Set parses value into the field named by key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// All returns every key with its current value.
func (c *Config) All() map[string]string {
	all := make(map[string]string, len(fields))
	for k, f := range fields {
		all[k] = f.get(c)
	}
	return all
}

func str(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func num(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("must be an integer, got %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

func dur(p func(*Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return p(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("must be a duration like 5s, got %q", v)
			}
			*p(c) = d
			return nil
		},
	}
}
