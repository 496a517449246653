package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"treegrep/internal/core/config"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/grammar"
)

// listLanguages prints the effective language table, including overrides
// from the config file.
func listLanguages(env *environment, opts *cliOptions) error {
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	overrides := make(map[string]grammar.LanguageOverride, len(cfg.Languages))
	for id, lang := range cfg.Languages {
		overrides[id] = grammar.LanguageOverride{
			Enabled:      lang.Enabled,
			Extensions:   lang.Extensions,
			Filenames:    lang.Filenames,
			Interpreters: lang.Interpreters,
			Priority:     lang.Priority,
		}
	}
	registry, err := grammar.BuildRegistry(overrides)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(env.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "LANGUAGE\tEXTENSIONS\tFILENAMES\tINTERPRETERS\tPRIORITY\tENABLED")
	for _, spec := range registry.Languages() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\n",
			spec.Name,
			joinOrDash(spec.Extensions),
			joinOrDash(spec.Filenames),
			joinOrDash(spec.Interpreters),
			spec.Priority,
			spec.Enabled,
		)
	}
	return outputFlush(w.Flush())
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}

func outputFlush(err error) error {
	if err != nil {
		return errors.Wrap(err, errors.CodeOutput, "write output")
	}
	return nil
}
