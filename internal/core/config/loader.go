package config

import (
	"os"
	"time"
	"treegrep/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, errors.CodeConfig, "read config file")
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		err = errors.Wrap(err, errors.CodeConfig, "decode config file")
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		err := errors.Newf(errors.CodeConfig, "unknown config key %q", undecoded[0].String())
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// Resolve loads path when set. Otherwise it loads DefaultFile from the
// working directory if one exists, and falls back to Default.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Output.Format == "" {
		cfg.Output.Format = "lines"
	}
	if cfg.Output.Color == "" {
		cfg.Output.Color = "auto"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.CacheSize <= 0 {
		cfg.Watch.CacheSize = 4096
	}
	if cfg.Languages == nil {
		cfg.Languages = make(map[string]Language)
	}
}

// Validate checks values that can be wrong after decoding, env overrides, or
// flag merging.
func Validate(cfg *Config) error {
	if err := validateOutput(cfg); err != nil {
		return err
	}
	if err := validateExtraction(cfg); err != nil {
		return err
	}
	if err := validateTypes(cfg); err != nil {
		return err
	}
	return nil
}
