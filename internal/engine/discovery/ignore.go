package discovery

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"treegrep/internal/core/errors"
	"treegrep/internal/shared/util"

	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreFileNames returns the ignore files read in every directory, in
// precedence order; later files win. .ignore is read in every mode.
func ignoreFileNames(gitIgnore bool) []string {
	if gitIgnore {
		return []string{".gitignore", ".ignore"}
	}
	return []string{".ignore"}
}

// ignorePattern is one parsed ignore line. depth is the number of path
// components of the directory that holds its file, relative to the rules'
// base. anchored patterns contain a slash before their last character and
// match from that directory; the rest match any name below it.
type ignorePattern struct {
	gitignore.Pattern
	depth    int
	anchored bool
}

// match applies p to path, ignoring the first floor components, which name
// the walk root and its ancestors. len(path) must exceed floor.
func (p ignorePattern) match(path []string, isDir bool, floor int) gitignore.MatchResult {
	if !p.anchored {
		if p.depth < floor {
			trimmed := make([]string, 0, p.depth+len(path)-floor)
			trimmed = append(trimmed, path[:p.depth]...)
			path = append(trimmed, path[floor:]...)
		}
		return p.Pattern.Match(path, isDir)
	}
	for k := 1; k <= floor; k++ {
		if p.Pattern.Match(path[:k], true) != gitignore.NoMatch {
			return gitignore.NoMatch
		}
	}
	return p.Pattern.Match(path, isDir)
}

// ignoreRules is the immutable set of patterns in effect for one directory.
// Paths are matched relative to base, the repository root when the walk root
// is inside a repository and the walk root itself otherwise. The first floor
// components of a matched path name the walk root, so a root inside an
// ignored directory is still walked.
type ignoreRules struct {
	base     string
	floor    int
	names    []string
	patterns []ignorePattern
}

// with returns rules extended by extra, which take precedence. r itself is
// returned when extra is empty so siblings share one pattern slice.
func (r *ignoreRules) with(extra []ignorePattern) *ignoreRules {
	if len(extra) == 0 {
		return r
	}
	combined := make([]ignorePattern, 0, len(r.patterns)+len(extra))
	combined = append(combined, r.patterns...)
	combined = append(combined, extra...)
	return &ignoreRules{base: r.base, floor: r.floor, names: r.names, patterns: combined}
}

// ignored applies the last matching pattern, as gitignore.Matcher does.
func (r *ignoreRules) ignored(absPath string, isDir bool) bool {
	if r == nil || len(r.patterns) == 0 {
		return false
	}
	components := util.SplitPathComponents(util.RelativeSlash(r.base, absPath))
	if len(components) <= r.floor {
		return false
	}
	for i := len(r.patterns) - 1; i >= 0; i-- {
		result := r.patterns[i].match(components, isDir, r.floor)
		if result == gitignore.NoMatch {
			continue
		}
		return result == gitignore.Exclude
	}
	return false
}

// loadDirPatterns reads the ignore files that live directly in absDir.
func (r *ignoreRules) loadDirPatterns(absDir string) ([]ignorePattern, []error) {
	domain := util.SplitPathComponents(util.RelativeSlash(r.base, absDir))
	var (
		out      []ignorePattern
		warnings []error
	)
	for _, name := range r.names {
		ps, err := readIgnoreFile(filepath.Join(absDir, name), domain)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		out = append(out, ps...)
	}
	return out, warnings
}

// rootIgnoreRules builds the rules in effect at absRoot: every ignore file
// between the repository root and absRoot's parent and, in gitignore mode,
// global excludes and the repository's info/exclude.
func rootIgnoreRules(absRoot string, gitIgnore bool, global []ignorePattern) (*ignoreRules, []error) {
	var warnings []error
	base := absRoot
	var patterns []ignorePattern
	if gitIgnore {
		patterns = append(patterns, global...)
	}

	if repoRoot, ok := findRepoRoot(absRoot); ok {
		base = repoRoot
		if gitIgnore {
			exclude, err := readIgnoreFile(filepath.Join(repoRoot, ".git", "info", "exclude"), nil)
			if err != nil {
				warnings = append(warnings, err)
			}
			patterns = append(patterns, exclude...)
		}
	}

	rules := &ignoreRules{
		base:     base,
		floor:    len(util.SplitPathComponents(util.RelativeSlash(base, absRoot))),
		names:    ignoreFileNames(gitIgnore),
		patterns: patterns,
	}
	for _, dir := range ancestorsBelow(base, absRoot) {
		extra, warns := rules.loadDirPatterns(dir)
		warnings = append(warnings, warns...)
		rules = rules.with(extra)
	}
	return rules, warnings
}

func findRepoRoot(absPath string) (string, bool) {
	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return worktree.Filesystem.Root(), true
}

// ancestorsBelow lists base and the directories between it and target,
// top-down, excluding target itself.
func ancestorsBelow(base, target string) []string {
	rel := util.RelativeSlash(base, target)
	components := util.SplitPathComponents(rel)
	if len(components) == 0 || filepath.IsAbs(rel) {
		return nil
	}
	dirs := []string{base}
	current := base
	for _, c := range components[:len(components)-1] {
		current = filepath.Join(current, c)
		dirs = append(dirs, current)
	}
	return dirs
}

func loadGlobalPatterns() ([]ignorePattern, error) {
	fs := osfs.New("/")
	system, err := gitignore.LoadSystemPatterns(fs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTraversal, "load system gitignore")
	}
	global, err := gitignore.LoadGlobalPatterns(fs)
	if err != nil {
		return wrapGlobal(system), errors.Wrap(err, errors.CodeTraversal, "load global gitignore")
	}
	return wrapGlobal(append(system, global...)), nil
}

// wrapGlobal wraps excludes-file patterns as unanchored, since their source
// lines are not available.
func wrapGlobal(patterns []gitignore.Pattern) []ignorePattern {
	out := make([]ignorePattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, ignorePattern{Pattern: p})
	}
	return out
}

// readIgnoreFile parses one gitignore-format file. A missing file is not an
// error.
func readIgnoreFile(path string, domain []string) ([]ignorePattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		err = errors.Wrap(err, errors.CodeTraversal, "read ignore file")
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	defer f.Close()

	var patterns []ignorePattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, ignorePattern{
			Pattern:  gitignore.ParsePattern(line, domain),
			depth:    len(domain),
			anchored: isAnchored(line),
		})
	}
	if err := scanner.Err(); err != nil {
		err = errors.Wrap(err, errors.CodeTraversal, "read ignore file")
		return patterns, errors.AddContext(err, errors.CtxPath, path)
	}
	return patterns, nil
}

func isAnchored(line string) bool {
	body := strings.TrimPrefix(strings.TrimSpace(line), "!")
	return strings.Contains(strings.TrimSuffix(body, "/"), "/")
}

// Ignorer reports whether single paths under a set of walk roots would be
// skipped by a walk with the same options, for callers that learn about
// files outside a walk. Ignore files are re-read on every call. Exclude
// globs are not applied.
type Ignorer struct {
	hidden bool
	roots  []ignoreRoot
}

type ignoreRoot struct {
	abs   string
	rules *ignoreRules
}

func NewIgnorer(opts Options) *Ignorer {
	var global []ignorePattern
	if opts.GitIgnore {
		var err error
		if global, err = loadGlobalPatterns(); err != nil {
			slog.Debug("global ignore patterns unavailable", "error", err)
		}
	}
	ig := &Ignorer{hidden: opts.Hidden}
	for _, root := range opts.Roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rules, _ := rootIgnoreRules(abs, opts.GitIgnore, global)
		ig.roots = append(ig.roots, ignoreRoot{abs: abs, rules: rules})
	}
	return ig
}

// Ignored reports whether path, or a directory between its root and path,
// is ignored or hidden. Paths outside every root are never ignored.
func (ig *Ignorer) Ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range ig.roots {
		rel, err := filepath.Rel(root.abs, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		names := strings.Split(rel, string(filepath.Separator))
		rules := root.rules
		dir := root.abs
		for i, name := range names {
			last := i == len(names)-1
			if skipName(name, !last, ig.hidden) {
				return true
			}
			extra, _ := rules.loadDirPatterns(dir)
			rules = rules.with(extra)
			dir = filepath.Join(dir, name)
			if !last && rules.ignored(dir, true) {
				return true
			}
		}
		return rules.ignored(abs, false)
	}
	return false
}
