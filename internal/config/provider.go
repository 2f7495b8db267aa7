package config

import "os"

// DefaultPath is where lfcfg looks for its config file on the camera.
const DefaultPath = "/etc/lfcfg.yaml"

// ResolvePath returns the config file to use: the explicit flag value,
// then LFCFG_CONFIG, then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return DefaultPath
}

// LoadResolved resolves the config path, loads it and applies environment
// overrides.
func LoadResolved(flag string) (Config, string, error) {
	path := ResolvePath(flag)
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	ApplyEnvOverrides(&cfg)
	return cfg, path, nil
}
