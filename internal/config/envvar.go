package config

import "os"

// Environment variable names for lfcfg configuration.
const (
	EnvConfig   = "LFCFG_CONFIG"    // Path to lfcfg.yaml
	EnvIniFile  = "LFCFG_INI_FILE"  // Override the rkipc.ini path
	EnvLogFile  = "LFCFG_LOG_FILE"  // Override the log file path
	EnvLogLevel = "LFCFG_LOG_LEVEL" // Override the log level
	EnvService  = "LFCFG_SERVICE"   // Override the service process name
	EnvJSON     = "LFCFG_JSON"      // Enable JSON output ("1" or "true")
)

// ApplyEnvOverrides applies the LFCFG_* overrides to cfg in memory.
// These overrides are not persisted to the config file.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvIniFile); v != "" {
		cfg.IniFile = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvService); v != "" {
		cfg.Service.Name = v
	}
}
