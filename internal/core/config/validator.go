package config

import (
	"strings"
	"treegrep/internal/core/errors"
)

// OutputFormats lists the accepted values of output.format.
var OutputFormats = []string{"lines", "json", "json-lines", "pretty-json"}

// ColorModes lists the accepted values of output.color.
var ColorModes = []string{"auto", "always", "never"}

func validateOutput(cfg *Config) error {
	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if !contains(OutputFormats, format) {
		return errors.Newf(errors.CodeConfig, "output.format must be one of: %s, got %q",
			strings.Join(OutputFormats, ", "), cfg.Output.Format)
	}
	cfg.Output.Format = format

	color := strings.ToLower(strings.TrimSpace(cfg.Output.Color))
	if !contains(ColorModes, color) {
		return errors.Newf(errors.CodeConfig, "output.color must be one of: %s, got %q",
			strings.Join(ColorModes, ", "), cfg.Output.Color)
	}
	cfg.Output.Color = color
	return nil
}

func validateExtraction(cfg *Config) error {
	if cfg.Extraction.Workers < 0 {
		return errors.Newf(errors.CodeConfig, "extraction.workers must be >= 0, got %d", cfg.Extraction.Workers)
	}
	return nil
}

func validateTypes(cfg *Config) error {
	for i, rule := range cfg.Types {
		if strings.TrimSpace(rule.Glob) == "" {
			return errors.Newf(errors.CodeConfig, "types[%d].glob must not be empty", i)
		}
		if strings.TrimSpace(rule.Language) == "" {
			return errors.Newf(errors.CodeConfig, "types[%d].language must not be empty", i)
		}
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
