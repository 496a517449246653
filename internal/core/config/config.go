package config

import "time"

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".treegrep.toml"

type Config struct {
	Languages     map[string]Language `toml:"languages"`
	Types         []TypeRule          `toml:"types"`
	Exclude       Exclude             `toml:"exclude"`
	Walk          Walk                `toml:"walk"`
	Extraction    Extraction          `toml:"extraction"`
	Output        Output              `toml:"output"`
	Watch         Watch               `toml:"watch"`
	Observability Observability       `toml:"observability"`
}

// Language overrides one entry of the built-in language table.
type Language struct {
	Enabled      *bool    `toml:"enabled"`
	Extensions   []string `toml:"extensions"`
	Filenames    []string `toml:"filenames"`
	Interpreters []string `toml:"interpreters"`
	Priority     *int     `toml:"priority"`
}

// TypeRule forces files matching Glob to be parsed as Language.
type TypeRule struct {
	Glob     string `toml:"glob"`
	Language string `toml:"language"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Walk struct {
	GitIgnore *bool `toml:"gitignore"`
	Hidden    bool  `toml:"hidden"`
}

type Extraction struct {
	Workers     int  `toml:"workers"`
	FailOnError bool `toml:"fail_on_error"`
}

type Output struct {
	Format string `toml:"format"`
	Sort   bool   `toml:"sort"`
	Color  string `toml:"color"`
}

type Watch struct {
	Debounce  time.Duration `toml:"debounce"`
	CacheSize int           `toml:"cache_size"`
}

type Observability struct {
	LogFile      string `toml:"log_file"`
	MetricsFile  string `toml:"metrics_file"`
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// UseGitIgnore reports the effective ignore mode; it defaults to on.
func (w Walk) UseGitIgnore() bool {
	return w.GitIgnore == nil || *w.GitIgnore
}
