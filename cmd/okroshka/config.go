package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const configFileName = "okroshka.toml"

type fileConfig struct {
	Opcodes opcodesConfig `toml:"opcodes"`
	Check   checkConfig   `toml:"check"`
	Trace   traceConfig   `toml:"trace"`
}

type opcodesConfig struct {
	Spec string `toml:"spec"`
}

type checkConfig struct {
	Jobs        int    `toml:"jobs"`
	InputFormat string `toml:"input_format"`
	UI          string `toml:"ui"`
}

type traceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// loadedConfig is a parsed okroshka.toml with the location it came from.
type loadedConfig struct {
	Path   string
	Root   string
	Config fileConfig
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// resolveConfig loads the explicit config path, or the nearest okroshka.toml
// above startDir. A missing implicit config yields nil.
func resolveConfig(explicit, startDir string) (*loadedConfig, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfig(startDir)
		if err != nil || !ok {
			return nil, err
		}
		path = found
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &loadedConfig{Path: abs, Root: filepath.Dir(abs), Config: cfg}, nil
}

func loadConfigFile(path string) (fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return fileConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Check.Jobs < 0 {
		return fileConfig{}, fmt.Errorf("%s: [check].jobs must not be negative", path)
	}
	return cfg, nil
}

// opcodeSpecPath returns the configured opcode specification, resolved
// against the directory holding the config file.
func (c *loadedConfig) opcodeSpecPath() string {
	if c == nil {
		return ""
	}
	spec := strings.TrimSpace(c.Config.Opcodes.Spec)
	if spec == "" || filepath.IsAbs(spec) {
		return spec
	}
	return filepath.Join(c.Root, filepath.FromSlash(spec))
}
