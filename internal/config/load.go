package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ResolvePath picks the configuration file: the flag value, then $BBRCTL_CONFIG, then
// DefaultConfigPath when it exists. An empty result means built-in defaults.
func ResolvePath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(ConfigEnvVar)); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// Load reads path over the defaults, rejecting unknown keys. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	configFile := filepath.Clean(path)
	content, err := os.ReadFile(configFile)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", configFile, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Default(), fmt.Errorf("parse config %s at line %d, column %d: %s", configFile, row, col, derr.Error())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return Default(), fmt.Errorf("parse config %s: %s", configFile, strings.TrimSpace(serr.String()))
		}
		return Default(), fmt.Errorf("parse config %s: %w", configFile, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid config %s: %w", configFile, err)
	}
	return cfg, nil
}
