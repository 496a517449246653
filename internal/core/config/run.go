package config

import (
	"strings"
	"time"
	"treegrep/internal/core/errors"
)

// Query is every pattern given for one language, in command-line order.
type Query struct {
	Language string
	Patterns []string
}

// RunConfig is the fully merged input of one search.
type RunConfig struct {
	Queries      []Query
	Paths        []string
	GitIgnore    bool
	Hidden       bool
	Sort         bool
	Format       string
	Color        string
	Workers      int
	FailOnError  bool
	ExcludeDirs  []string
	ExcludeFiles []string
	Types        []TypeRule
	Languages    map[string]Language
	Watch        bool
	Debounce     time.Duration
	CacheSize    int
}

// GroupQueries merges (language, pattern) pairs by language. Languages keep
// the order of their first appearance; patterns keep their given order.
func GroupQueries(pairs [][2]string) []Query {
	index := make(map[string]int)
	var out []Query
	for _, pair := range pairs {
		language := strings.ToLower(strings.TrimSpace(pair[0]))
		i, ok := index[language]
		if !ok {
			i = len(out)
			index[language] = i
			out = append(out, Query{Language: language})
		}
		out[i].Patterns = append(out[i].Patterns, pair[1])
	}
	return out
}

// NewRunConfig combines a validated Config with the queries and paths of one
// invocation. With no paths, the working directory is searched.
func NewRunConfig(cfg *Config, queries []Query, paths []string) (*RunConfig, error) {
	if len(queries) == 0 {
		return nil, errors.New(errors.CodeConfig, "at least one query is required (-q LANGUAGE QUERY)")
	}
	for _, q := range queries {
		if q.Language == "" {
			return nil, errors.New(errors.CodeConfig, "query language must not be empty")
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	return &RunConfig{
		Queries:      queries,
		Paths:        append([]string(nil), paths...),
		GitIgnore:    cfg.Walk.UseGitIgnore(),
		Hidden:       cfg.Walk.Hidden,
		Sort:         cfg.Output.Sort,
		Format:       cfg.Output.Format,
		Color:        cfg.Output.Color,
		Workers:      cfg.Extraction.Workers,
		FailOnError:  cfg.Extraction.FailOnError,
		ExcludeDirs:  append([]string(nil), cfg.Exclude.Dirs...),
		ExcludeFiles: append([]string(nil), cfg.Exclude.Files...),
		Types:        append([]TypeRule(nil), cfg.Types...),
		Languages:    cfg.Languages,
		Debounce:     cfg.Watch.Debounce,
		CacheSize:    cfg.Watch.CacheSize,
	}, nil
}
