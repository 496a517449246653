package cli

import (
	"fmt"
	"strings"
	"time"
	"treegrep/internal/core/config"
	"treegrep/internal/shared/version"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath   string
	queries      []string
	format       string
	sort         bool
	noGitIgnore  bool
	hidden       bool
	typeAdds     []string
	threads      int
	failOnError  bool
	color        string
	verbose      bool
	logFile      string
	metricsFile  string
	metricsAddr  string
	otlpEndpoint string
	progress     bool
	watch        bool
	debounce     time.Duration
	languages    bool
	paths        []string
}

// usageError marks command-line misuse, which exits with status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func newRootCommand(env *environment) *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "treegrep -q LANGUAGE QUERY [-q LANGUAGE QUERY...] [PATH...]",
		Short: "Search source files with tree-sitter queries",
		Long: `treegrep parses files with tree-sitter and prints every node captured by the
given queries. Each -q takes a language and a query in tree-sitter query syntax;
a query without captures reports the whole match as "query".

Rows and columns are 1-based in lines output and 0-based in JSON output.
Columns are byte offsets within the line.`,
		Version:       version.String(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.paths = args
			if opts.languages {
				return listLanguages(env, opts)
			}
			return runSearch(cmd, env, opts)
		},
	}
	cmd.SetOut(env.stdout)
	cmd.SetErr(env.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.queries, "query", "q", nil, "language and query, given as two arguments (-q python '(class_definition) @class')")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: lines, json, json-lines, pretty-json (default lines)")
	flags.BoolVar(&opts.sort, "sort", false, "sort files by path before printing")
	flags.BoolVar(&opts.noGitIgnore, "no-gitignore", false, "search files excluded by .gitignore and git excludes (.ignore still applies)")
	flags.BoolVar(&opts.hidden, "hidden", false, "search hidden files and directories (.git is always skipped)")
	flags.StringArrayVar(&opts.typeAdds, "type-add", nil, "treat files matching GLOB as LANGUAGE (GLOB:LANGUAGE)")
	flags.IntVarP(&opts.threads, "threads", "j", 0, "number of search workers (default GOMAXPROCS)")
	flags.BoolVar(&opts.failOnError, "fail-on-error", false, "exit 1 when any file cannot be searched")
	flags.StringVar(&opts.color, "color", "", "colorize lines output: auto, always, never (default auto)")
	flags.BoolVar(&opts.languages, "languages", false, "list supported languages and exit")
	flags.BoolVar(&opts.progress, "progress", false, "show a progress spinner on stderr")
	flags.BoolVar(&opts.watch, "watch", false, "keep running and print records of files as they change")
	flags.DurationVar(&opts.debounce, "debounce", 0, "delay before changed files are searched in watch mode (default 300ms)")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultFile+" when present)")
	persistent.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	persistent.StringVar(&opts.logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	persistent.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the search")
	persistent.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address while running")
	persistent.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "export traces to this OTLP/gRPC endpoint")

	cmd.AddCommand(newLanguagesCommand(env, opts), newVersionCommand(env))
	return cmd
}

func newLanguagesCommand(env *environment, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and how files are matched to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLanguages(env, opts)
		},
	}
}

func newVersionCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the treegrep version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.stdout, "treegrep %s\n", version.String())
		},
	}
}

// expandQueryArgs rewrites each "-q LANGUAGE QUERY" (or "--query") into a
// single "--query=LANGUAGE:QUERY" so the pair survives flag parsing. Language
// identifiers never contain ':', so the first one separates the two. Arguments
// after "--" are left alone.
func expandQueryArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return append(out, args[i:]...), nil
		case arg == "-q" || arg == "--query":
			if i+2 >= len(args) {
				return nil, usageErrorf("%s needs two arguments: a language and a query", arg)
			}
			out = append(out, "--query="+args[i+1]+":"+args[i+2])
			i += 2
		case strings.HasPrefix(arg, "--query="):
			if i+1 >= len(args) {
				return nil, usageErrorf("--query needs two arguments: a language and a query")
			}
			out = append(out, arg+":"+args[i+1])
			i++
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

// queryPairs splits the expanded --query values back into (language, query).
func queryPairs(values []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(values))
	for _, v := range values {
		language, query, ok := strings.Cut(v, ":")
		if !ok || strings.TrimSpace(language) == "" {
			return nil, usageErrorf("invalid query %q: expected a language and a query", v)
		}
		pairs = append(pairs, [2]string{language, query})
	}
	return pairs, nil
}

// typeRules parses --type-add values of the form GLOB:LANGUAGE. The glob may
// itself contain ':', so the last one separates the two.
func typeRules(values []string) ([]config.TypeRule, error) {
	rules := make([]config.TypeRule, 0, len(values))
	for _, v := range values {
		i := strings.LastIndex(v, ":")
		if i <= 0 || i == len(v)-1 {
			return nil, usageErrorf("invalid --type-add %q: expected GLOB:LANGUAGE", v)
		}
		rules = append(rules, config.TypeRule{Glob: v[:i], Language: v[i+1:]})
	}
	return rules, nil
}
