package app

import (
	"time"
	"treegrep/internal/core/config"
	"treegrep/internal/engine/extract"
	"treegrep/internal/engine/grammar"
	"treegrep/internal/engine/selector"
	"treegrep/internal/shared/observability"
	"treegrep/internal/shared/util"
)

// App holds everything one invocation resolves up front: the language
// registry, one compiled binding per queried language, and the selector
// that maps files to them. All of it is read-only once New returns.
type App struct {
	Config   *config.RunConfig
	Registry *grammar.Registry

	bindings   []*grammar.Binding
	extractors []*extract.Extractor
	selector   *selector.Selector
	progress   *observability.Progress
	throttle   *util.Throttle
}

type Option func(*App)

// WithProgress reports each searched file to p.
func WithProgress(p *observability.Progress) Option {
	return func(a *App) {
		a.progress = p
	}
}

// New resolves every query in cfg. Configuration problems (unknown or
// disabled languages, invalid patterns, bad type overrides) are returned
// before any file is touched.
func New(cfg *config.RunConfig, opts ...Option) (*App, error) {
	registry, err := grammar.BuildRegistry(languageOverrides(cfg.Languages))
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Registry: registry,
		throttle: util.NewThrottle(time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, q := range cfg.Queries {
		binding, err := registry.Resolve(q.Language, q.Patterns)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.bindings = append(a.bindings, binding)
		a.extractors = append(a.extractors, extract.New(binding))
	}

	sel, err := selector.New(registry, a.extractors, typeOverrides(cfg.Types))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.selector = sel
	return a, nil
}

// Languages returns the queried language identifiers in query order.
func (a *App) Languages() []string {
	out := make([]string, 0, len(a.extractors))
	for _, ex := range a.extractors {
		out = append(out, ex.Language())
	}
	return out
}

// Close releases the compiled queries. The App must not be used afterwards.
func (a *App) Close() {
	for _, b := range a.bindings {
		b.Close()
	}
	a.bindings = nil
}

func languageOverrides(in map[string]config.Language) map[string]grammar.LanguageOverride {
	out := make(map[string]grammar.LanguageOverride, len(in))
	for id, lang := range in {
		out[id] = grammar.LanguageOverride{
			Enabled:      lang.Enabled,
			Extensions:   append([]string(nil), lang.Extensions...),
			Filenames:    append([]string(nil), lang.Filenames...),
			Interpreters: append([]string(nil), lang.Interpreters...),
			Priority:     lang.Priority,
		}
	}
	return out
}

func typeOverrides(rules []config.TypeRule) []selector.TypeOverride {
	out := make([]selector.TypeOverride, 0, len(rules))
	for _, rule := range rules {
		out = append(out, selector.TypeOverride{Glob: rule.Glob, Language: rule.Language})
	}
	return out
}
