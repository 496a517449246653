package discovery

import (
	"path/filepath"
	"strings"
)

// Entry is one filesystem object found under a root.
type Entry struct {
	// Path is the root joined with the path below it, as given by the user.
	Path string
	// Root is the walk root this entry was found under.
	Root string
	// Depth is 0 for the root itself.
	Depth  int
	IsDir  bool
	IsFile bool
}

// Ext returns the lower-cased extension including the dot, or "".
func (e Entry) Ext() string {
	return strings.ToLower(filepath.Ext(e.Path))
}

// Options configures a walk.
type Options struct {
	Roots []string
	// GitIgnore enables .gitignore, .git/info/exclude and the global excludes
	// file. .ignore files apply either way.
	GitIgnore bool
	// Hidden walks entries whose name starts with a dot. .git is skipped
	// regardless.
	Hidden bool
	// Workers is the number of directory readers; <= 0 means GOMAXPROCS.
	Workers int
	// ExcludeDirs and ExcludeFiles are glob patterns matched against base
	// names. They apply whether or not GitIgnore is set.
	ExcludeDirs  []string
	ExcludeFiles []string
}
