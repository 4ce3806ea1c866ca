package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultConfigPath is read, if present, when --config is not given.
const DefaultConfigPath = "symexpr.toml"

// Config represents the configuration file.
type Config struct {
	Parser ParserConfig `toml:"parser"`
	State  StateConfig  `toml:"state"`
}

// ParserConfig selects the expansions installed in the parser.
type ParserConfig struct {
	Placeholders bool   `toml:"placeholders"` // map unknown symbols to placeholders
	Memory       bool   `toml:"memory"`       // map N-byte (memory[N] ADDR) reads to placeholders
	Registers    string `toml:"registers"`    // register dictionary file
}

// StateConfig holds the machine state used to resolve placeholders.
type StateConfig struct {
	File string `toml:"file"`
}

// ReadConfigFile reads the TOML configuration at path. A missing file yields
// the zero configuration unless mustExist is set. Relative file paths are
// resolved against the directory of the config file.
func ReadConfigFile(path string, mustExist bool) (Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if errors.Is(err, os.ErrNotExist) && !mustExist {
		return Config{}, nil
	} else if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return config, fmt.Errorf("read config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	// File paths are relative to the config file.
	dir := filepath.Dir(path)
	config.Parser.Registers = resolvePath(dir, config.Parser.Registers)
	config.State.File = resolvePath(dir, config.State.File)
	return config, nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
