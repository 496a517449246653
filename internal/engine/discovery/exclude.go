package discovery

import (
	"strings"
	"treegrep/internal/core/errors"

	"github.com/gobwas/glob"
)

// alwaysSkippedDirs are never descended into, even with hidden entries on.
var alwaysSkippedDirs = map[string]bool{".git": true}

// skipName reports whether an entry below a walk root is skipped by name
// alone: .git always, dot-entries unless hidden entries are walked.
func skipName(name string, isDir, hidden bool) bool {
	if isDir && alwaysSkippedDirs[name] {
		return true
	}
	return !hidden && strings.HasPrefix(name, ".")
}

type excluder struct {
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
}

func newExcluder(excludeDirs, excludeFiles []string) (*excluder, error) {
	dirGlobs, err := compileGlobs(excludeDirs, "dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(excludeFiles, "file")
	if err != nil {
		return nil, err
	}
	return &excluder{dirGlobs: dirGlobs, fileGlobs: fileGlobs}, nil
}

func compileGlobs(patterns []string, kind string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			err = errors.Wrap(err, errors.CodeConfig, "invalid exclude "+kind+" pattern")
			return nil, errors.AddContext(err, errors.CtxPattern, p)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func (x *excluder) excluded(base string, isDir bool) bool {
	if isDir {
		for _, g := range x.dirGlobs {
			if g.Match(base) {
				return true
			}
		}
		return false
	}
	for _, g := range x.fileGlobs {
		if g.Match(base) {
			return true
		}
	}
	return false
}
