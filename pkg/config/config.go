// Package config handles trplvm.toml host configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "trplvm.toml"

// Config represents a trplvm.toml file.
type Config struct {
	VM      VMConfig      `toml:"vm"`
	Log     LogConfig     `toml:"log"`
	Presets PresetsConfig `toml:"presets"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// VMConfig configures engine limits.
type VMConfig struct {
	MaxSteps int64 `toml:"max-steps"`
	Trace    bool  `toml:"trace"`
}

// LogConfig configures diagnostics output.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// PresetsConfig names a register preset table applied before every run.
type PresetsConfig struct {
	Registers string `toml:"registers"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Log: LogConfig{Verbosity: 1},
	}
}

// Load parses the configuration file at path. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.VM.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: vm.max-steps must not be negative", path)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find a trplvm.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// PresetPath returns the preset table path resolved against the directory
// of the configuration file, or "" when none is configured.
func (c *Config) PresetPath() string {
	p := c.Presets.Registers
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// LogFile returns the log file path, or nil for stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	p := c.Log.File
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return &p
}
