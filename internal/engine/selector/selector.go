package selector

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/discovery"
	"treegrep/internal/engine/extract"
	"treegrep/internal/engine/grammar"

	"github.com/gobwas/glob"
)

// shebangLimit bounds how much of an extension-less file is read to find an
// interpreter line.
const shebangLimit = 256

// TypeOverride forces files matching Glob to be treated as Language.
type TypeOverride struct {
	Glob     string
	Language string
}

type typeOverride struct {
	pattern  string
	glob     glob.Glob
	language string
}

// Selector maps entries to the extractor that should search them. It is
// immutable and safe for concurrent use.
type Selector struct {
	registry   *grammar.Registry
	extractors map[string]*extract.Extractor
	overrides  []typeOverride
}

func New(registry *grammar.Registry, extractors []*extract.Extractor, overrides []TypeOverride) (*Selector, error) {
	s := &Selector{
		registry:   registry,
		extractors: make(map[string]*extract.Extractor, len(extractors)),
	}
	for _, ex := range extractors {
		s.extractors[ex.Language()] = ex
	}
	for _, o := range overrides {
		language := strings.ToLower(strings.TrimSpace(o.Language))
		if _, ok := registry.Spec(language); !ok {
			err := errors.Newf(errors.CodeUnknownLanguage, "type override %q names unknown language %q", o.Glob, o.Language)
			return nil, errors.AddContext(err, errors.CtxLanguage, o.Language)
		}
		g, err := glob.Compile(o.Glob, '/')
		if err != nil {
			err = errors.Wrap(err, errors.CodeConfig, "invalid type override glob")
			return nil, errors.AddContext(err, errors.CtxPattern, o.Glob)
		}
		s.overrides = append(s.overrides, typeOverride{pattern: o.Glob, glob: g, language: language})
	}
	return s, nil
}

// Select returns the extractor for entry, or false when the entry is not a
// regular file or no queried language claims it.
func (s *Selector) Select(entry discovery.Entry) (*extract.Extractor, bool) {
	if !entry.IsFile {
		return nil, false
	}
	return s.SelectPath(entry.Path)
}

// SelectPath applies the selection rules to a path known to be a regular
// file. Type overrides win outright; otherwise the first filename or
// extension candidate with a query is used; files with no candidate at all
// are sniffed for a shebang.
func (s *Selector) SelectPath(path string) (*extract.Extractor, bool) {
	if language, ok := s.overrideFor(path); ok {
		ex, ok := s.extractors[language]
		return ex, ok
	}

	candidates := s.registry.IdentifiersFor(path)
	for _, language := range candidates {
		if ex, ok := s.extractors[language]; ok {
			return ex, true
		}
	}
	if len(candidates) > 0 || filepath.Ext(path) != "" {
		return nil, false
	}

	interpreter, ok := readShebang(path)
	if !ok {
		return nil, false
	}
	for _, language := range s.registry.IdentifiersForInterpreter(interpreter) {
		if ex, ok := s.extractors[language]; ok {
			return ex, true
		}
	}
	return nil, false
}

func (s *Selector) overrideFor(path string) (string, bool) {
	if len(s.overrides) == 0 {
		return "", false
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, o := range s.overrides {
		if o.glob.Match(slashed) || o.glob.Match(base) {
			return o.language, true
		}
	}
	return "", false
}

// readShebang returns the interpreter named on a "#!" first line. For
// "#!/usr/bin/env [-S] python3" it returns "python3".
func readShebang(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	buf := make([]byte, shebangLimit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", false
	}
	return parseShebang(buf[:n])
}

func parseShebang(head []byte) (string, bool) {
	if !bytes.HasPrefix(head, []byte("#!")) {
		return "", false
	}
	line := head[2:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return "", false
	}
	if filepath.Base(fields[0]) != "env" {
		return fields[0], true
	}
	for _, field := range fields[1:] {
		if strings.HasPrefix(field, "-") || strings.Contains(field, "=") {
			continue
		}
		return field, true
	}
	return "", false
}
