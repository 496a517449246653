package grammar

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"treegrep/internal/core/errors"
)

// LanguageSpec describes how files are associated with a grammar.
type LanguageSpec struct {
	Name         string
	Extensions   []string
	Filenames    []string
	Interpreters []string
	// Priority orders languages sharing an extension; lower wins.
	Priority int
	Enabled  bool
}

type LanguageOverride struct {
	Enabled      *bool    `toml:"enabled"`
	Extensions   []string `toml:"extensions"`
	Filenames    []string `toml:"filenames"`
	Interpreters []string `toml:"interpreters"`
	Priority     *int     `toml:"priority"`
}

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"c": {
			Name:       "c",
			Extensions: []string{".c", ".h"},
			Enabled:    true,
		},
		"cpp": {
			Name:       "cpp",
			Extensions: []string{".cc", ".cpp", ".cxx", ".c++", ".hh", ".hpp", ".hxx", ".h"},
			Priority:   10,
			Enabled:    true,
		},
		"css": {
			Name:       "css",
			Extensions: []string{".css"},
			Enabled:    true,
		},
		"elixir": {
			Name:         "elixir",
			Extensions:   []string{".ex", ".exs"},
			Filenames:    []string{"mix.lock"},
			Interpreters: []string{"elixir"},
			Enabled:      true,
		},
		"elm": {
			Name:       "elm",
			Extensions: []string{".elm"},
			Enabled:    true,
		},
		"go": {
			Name:       "go",
			Extensions: []string{".go"},
			Enabled:    true,
		},
		"haskell": {
			Name:         "haskell",
			Extensions:   []string{".hs"},
			Interpreters: []string{"runghc", "runhaskell"},
			Enabled:      true,
		},
		"html": {
			Name:       "html",
			Extensions: []string{".html", ".htm"},
			Enabled:    true,
		},
		"java": {
			Name:       "java",
			Extensions: []string{".java"},
			Enabled:    true,
		},
		"javascript": {
			Name:         "javascript",
			Extensions:   []string{".js", ".cjs", ".mjs", ".jsx"},
			Interpreters: []string{"node", "nodejs"},
			Enabled:      true,
		},
		"nix": {
			Name:       "nix",
			Extensions: []string{".nix"},
			Enabled:    true,
		},
		"php": {
			Name:         "php",
			Extensions:   []string{".php"},
			Interpreters: []string{"php"},
			Enabled:      true,
		},
		"python": {
			Name:         "python",
			Extensions:   []string{".py", ".pyi"},
			Interpreters: []string{"python", "python2", "python3"},
			Enabled:      true,
		},
		"ruby": {
			Name:         "ruby",
			Extensions:   []string{".rb"},
			Filenames:    []string{"Gemfile", "Rakefile"},
			Interpreters: []string{"ruby"},
			Enabled:      true,
		},
		"rust": {
			Name:       "rust",
			Extensions: []string{".rs"},
			Enabled:    true,
		},
		"tsx": {
			Name:       "tsx",
			Extensions: []string{".tsx"},
			Enabled:    true,
		},
		"typescript": {
			Name:       "typescript",
			Extensions: []string{".ts", ".mts", ".cts"},
			Enabled:    true,
		},
	}
}

// Registry is an immutable, validated view of the language table with
// lookup indexes. It is safe for concurrent use.
type Registry struct {
	specs         map[string]LanguageSpec
	byExtension   map[string][]string
	byFilename    map[string][]string
	byInterpreter map[string][]string
}

func BuildRegistry(overrides map[string]LanguageOverride) (*Registry, error) {
	specs := cloneLanguageRegistry(DefaultLanguageRegistry())

	for _, language := range sortedOverrideIDs(overrides) {
		override := overrides[language]
		spec, ok := specs[language]
		if !ok {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeConfig, "unknown language override %q", language),
				errors.CtxLanguage, language)
		}
		if override.Enabled != nil {
			spec.Enabled = *override.Enabled
		}
		if len(override.Extensions) > 0 {
			spec.Extensions = override.Extensions
		}
		if len(override.Filenames) > 0 {
			spec.Filenames = override.Filenames
		}
		if len(override.Interpreters) > 0 {
			spec.Interpreters = override.Interpreters
		}
		if override.Priority != nil {
			spec.Priority = *override.Priority
		}
		specs[language] = spec
	}

	for id, spec := range specs {
		spec.Extensions = normalizeExtensions(spec.Extensions)
		spec.Filenames = normalizeFilenames(spec.Filenames)
		spec.Interpreters = normalizeFilenames(spec.Interpreters)
		specs[id] = spec
	}
	if err := validateLanguageRegistry(specs); err != nil {
		return nil, err
	}
	return indexRegistry(specs), nil
}

func cloneLanguageRegistry(in map[string]LanguageSpec) map[string]LanguageSpec {
	out := make(map[string]LanguageSpec, len(in))
	for id, spec := range in {
		copySpec := spec
		copySpec.Extensions = append([]string(nil), spec.Extensions...)
		copySpec.Filenames = append([]string(nil), spec.Filenames...)
		copySpec.Interpreters = append([]string(nil), spec.Interpreters...)
		out[id] = copySpec
	}
	return out
}

func validateLanguageRegistry(registry map[string]LanguageSpec) error {
	for _, id := range sortedRegistryIDs(registry) {
		spec := registry[id]
		if spec.Name != id {
			return errors.Newf(errors.CodeConfig, "language %q has mismatched name %q", id, spec.Name)
		}
		if !hasGrammar(id) {
			return errors.Newf(errors.CodeConfig, "language %q has no compiled grammar", id)
		}
		if spec.Priority < 0 {
			return errors.Newf(errors.CodeConfig, "language %q has negative priority %d", id, spec.Priority)
		}
	}
	return nil
}

func indexRegistry(specs map[string]LanguageSpec) *Registry {
	r := &Registry{
		specs:         specs,
		byExtension:   make(map[string][]string),
		byFilename:    make(map[string][]string),
		byInterpreter: make(map[string][]string),
	}
	for _, id := range sortedRegistryIDs(specs) {
		spec := specs[id]
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			r.byExtension[ext] = append(r.byExtension[ext], id)
		}
		for _, name := range spec.Filenames {
			r.byFilename[name] = append(r.byFilename[name], id)
		}
		for _, interp := range spec.Interpreters {
			r.byInterpreter[interp] = append(r.byInterpreter[interp], id)
		}
	}
	for _, index := range []map[string][]string{r.byExtension, r.byFilename, r.byInterpreter} {
		for key, ids := range index {
			sort.SliceStable(ids, func(i, j int) bool {
				pi, pj := specs[ids[i]].Priority, specs[ids[j]].Priority
				if pi != pj {
					return pi < pj
				}
				return ids[i] < ids[j]
			})
			index[key] = ids
		}
	}
	return r
}

// Spec returns the entry for id. IDs are case-insensitive.
func (r *Registry) Spec(id string) (LanguageSpec, bool) {
	spec, ok := r.specs[strings.ToLower(strings.TrimSpace(id))]
	return spec, ok
}

// Languages returns every known language, sorted by name.
func (r *Registry) Languages() []LanguageSpec {
	out := make([]LanguageSpec, 0, len(r.specs))
	for _, id := range sortedRegistryIDs(r.specs) {
		out = append(out, r.specs[id])
	}
	return out
}

// IdentifiersFor returns candidate languages for filePath in precedence
// order: exact filename matches first, then the extension.
func (r *Registry) IdentifiersFor(filePath string) []string {
	base := strings.ToLower(filepath.Base(filePath))
	var out []string
	out = append(out, r.byFilename[base]...)
	if ext := strings.ToLower(filepath.Ext(base)); ext != "" {
		out = appendUnique(out, r.byExtension[ext]...)
	}
	return out
}

// IdentifiersForInterpreter returns candidate languages for a shebang
// interpreter such as "python3" or "/usr/bin/ruby".
func (r *Registry) IdentifiersForInterpreter(interpreter string) []string {
	name := strings.ToLower(path.Base(strings.TrimSpace(interpreter)))
	if name == "" || name == "." || name == "/" {
		return nil
	}
	return append([]string(nil), r.byInterpreter[name]...)
}

func (s LanguageSpec) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, strings.Join(s.Extensions, " "))
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

func normalizeExtensions(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(strings.ToLower(value))
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, ".") {
			raw = "." + raw
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func normalizeFilenames(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(strings.ToLower(path.Base(value)))
		if raw == "" || raw == "." {
			continue
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func sortedRegistryIDs(registry map[string]LanguageSpec) []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedOverrideIDs(overrides map[string]LanguageOverride) []string {
	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
