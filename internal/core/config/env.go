package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: TREEGREP_[SECTION]_[KEY] (e.g., TREEGREP_OUTPUT_FORMAT).
func ApplyEnvOverrides(cfg *Config) {
	// Walk
	if val, ok := lookupBool("TREEGREP_WALK_GITIGNORE"); ok {
		cfg.Walk.GitIgnore = &val
	}
	setEnvBool(&cfg.Walk.Hidden, "TREEGREP_WALK_HIDDEN")

	// Extraction
	setEnvInt(&cfg.Extraction.Workers, "TREEGREP_EXTRACTION_WORKERS")
	setEnvBool(&cfg.Extraction.FailOnError, "TREEGREP_EXTRACTION_FAIL_ON_ERROR")

	// Output
	setEnvString(&cfg.Output.Format, "TREEGREP_OUTPUT_FORMAT")
	setEnvBool(&cfg.Output.Sort, "TREEGREP_OUTPUT_SORT")
	setEnvString(&cfg.Output.Color, "TREEGREP_OUTPUT_COLOR")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "TREEGREP_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.LogFile, "TREEGREP_OBSERVABILITY_LOG_FILE")
	setEnvString(&cfg.Observability.MetricsFile, "TREEGREP_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.MetricsAddr, "TREEGREP_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "TREEGREP_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if b, ok := lookupBool(key); ok {
		*target = b
	}
}

func lookupBool(key string) (bool, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(val))
	if err != nil {
		return false, false
	}
	slog.Debug("applying env override", "key", key, "value", val)
	return b, true
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
