package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"luckfox-webcfg/internal/config"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "lfcfg.yaml")
	var out bytes.Buffer
	provider := &AppProvider{ConfigPath: path, Out: &out}

	cmd := newConfigInitCmd(provider)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if cfg.IniFile != config.Default().IniFile {
		t.Errorf("ini_file = %q, want the default", cfg.IniFile)
	}

	cmd = newConfigInitCmd(provider)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}

	cmd = newConfigInitCmd(provider)
	cmd.SetArgs([]string{"--force"})
	if err := cmd.Execute(); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}
}

func TestConfigSetThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lfcfg.yaml")
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvLogLevel, "")
	var out bytes.Buffer
	provider := &AppProvider{ConfigPath: path, Out: &out}

	cmd := newConfigSetCmd(provider)
	cmd.SetArgs([]string{"service.stop_max_polls", "20"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Set service.stop_max_polls = 20" {
		t.Errorf("config set output = %q", got)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.StopMaxPolls != 20 {
		t.Errorf("stop_max_polls = %d, want 20", cfg.Service.StopMaxPolls)
	}

	out.Reset()
	app := &App{Config: cfg, ConfigPath: path, Out: &out}
	cmd = newConfigGetCmd(NewTestProvider(app))
	cmd.SetArgs([]string{"service.stop_max_polls"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "20" {
		t.Errorf("config get = %q, want 20", got)
	}
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lfcfg.yaml")
	var out bytes.Buffer
	provider := &AppProvider{ConfigPath: path, Out: &out}

	cmd := newConfigSetCmd(provider)
	cmd.SetArgs([]string{"log.level", "chatty"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("config set accepted an invalid level")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config file should not be written, stat err = %v", err)
	}

	cmd = newConfigSetCmd(provider)
	cmd.SetArgs([]string{"no.such.key", "1"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("config set accepted an unknown key")
	}
}

func TestConfigGet_NotSet(t *testing.T) {
	var out bytes.Buffer
	app := &App{Config: config.Default(), Out: &out}

	cmd := newConfigGetCmd(NewTestProvider(app))
	cmd.SetArgs([]string{"custom.key"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "custom.key (not set)" {
		t.Errorf("config get missing = %q", got)
	}
}

func TestConfigList_JSON(t *testing.T) {
	var out bytes.Buffer
	app := &App{Config: config.Default(), Out: &out, JSON: true}

	cmd := newConfigListCmd(NewTestProvider(app))
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config list failed: %v", err)
	}

	var all map[string]string
	if err := json.Unmarshal(out.Bytes(), &all); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if all["ini_file"] != "/userdata/rkipc.ini" {
		t.Errorf("ini_file = %q", all["ini_file"])
	}
	if len(all) != len(config.Keys()) {
		t.Errorf("listed %d keys, want %d", len(all), len(config.Keys()))
	}
}
