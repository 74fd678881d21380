package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults carries optional per-tool settings from agent-tools.toml.
// Everything in it has a hardcoded fallback, so a missing file is fine.
type Defaults struct {
	Vision  map[string]VisionDefaults `toml:"vision"`
	Monitor MonitorDefaults           `toml:"monitor"`
}

// VisionDefaults overrides one vision tool's request defaults. The map
// key is the tool suffix ("ollama", "venice").
type VisionDefaults struct {
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// MonitorDefaults overrides the session monitor thresholds.
type MonitorDefaults struct {
	StuckThresholdMin int `toml:"stuck_threshold_min"`
	ActiveMinutes     int `toml:"active_minutes"`
}

// DefaultsPath returns the first defaults file that exists: an
// agent-tools.toml in the working directory, then the one under the
// user config directory. Empty when neither exists.
func DefaultsPath() string {
	if _, err := os.Stat("agent-tools.toml"); err == nil {
		return "agent-tools.toml"
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "agent-tools", "agent-tools.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadDefaults parses the defaults file at path. An empty path loads
// DefaultsPath(); a missing file yields zero-value defaults.
func LoadDefaults(path string) (*Defaults, error) {
	if path == "" {
		path = DefaultsPath()
		if path == "" {
			return &Defaults{}, nil
		}
	}

	var d Defaults
	if _, err := toml.DecodeFile(path, &d); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Defaults{}, nil
		}
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	return &d, nil
}
