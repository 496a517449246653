package selector

import (
	"os"
	"path/filepath"
	"testing"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/discovery"
	"treegrep/internal/engine/extract"
	"treegrep/internal/engine/grammar"
)

func newSelector(t *testing.T, overrides []TypeOverride, languages ...string) *Selector {
	t.Helper()
	registry, err := grammar.BuildRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	var extractors []*extract.Extractor
	for _, language := range languages {
		binding, err := registry.Resolve(language, []string{"(_) @node"})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(binding.Close)
		extractors = append(extractors, extract.New(binding))
	}
	s, err := New(registry, extractors, overrides)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func selected(s *Selector, path string) string {
	ex, ok := s.Select(discovery.Entry{Path: path, IsFile: true})
	if !ok {
		return ""
	}
	return ex.Language()
}

func TestSelect_ByExtension(t *testing.T) {
	s := newSelector(t, nil, "go", "python")

	cases := map[string]string{
		"main.go":       "go",
		"pkg/util.PY":   "python",
		"lib/index.js":  "",
		"README.md":     "",
		"src/types.pyi": "python",
	}
	for path, want := range cases {
		if got := selected(s, path); got != want {
			t.Errorf("Select(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSelect_SkipsNonFiles(t *testing.T) {
	s := newSelector(t, nil, "go")
	if _, ok := s.Select(discovery.Entry{Path: "pkg.go", IsDir: true}); ok {
		t.Fatal("directories must not be selected")
	}
}

func TestSelect_SharedExtensionUsesPriority(t *testing.T) {
	both := newSelector(t, nil, "c", "cpp")
	if got := selected(both, "include/x.h"); got != "c" {
		t.Fatalf("expected c to win .h, got %q", got)
	}
	cppOnly := newSelector(t, nil, "cpp")
	if got := selected(cppOnly, "include/x.h"); got != "cpp" {
		t.Fatalf("expected cpp when c is not queried, got %q", got)
	}
}

func TestSelect_TypeOverrides(t *testing.T) {
	s := newSelector(t, []TypeOverride{
		{Glob: "*.jsm", Language: "javascript"},
		{Glob: "legacy/**/*.js", Language: "typescript"},
	}, "javascript")

	if got := selected(s, "lib/module.jsm"); got != "javascript" {
		t.Fatalf("expected override to javascript, got %q", got)
	}
	if got := selected(s, "legacy/a/b.js"); got != "" {
		t.Fatalf("expected override to unqueried typescript to decline, got %q", got)
	}
	if got := selected(s, "src/b.js"); got != "javascript" {
		t.Fatalf("expected extension fallback, got %q", got)
	}
}

func TestNew_RejectsBadOverrides(t *testing.T) {
	registry, err := grammar.BuildRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(registry, nil, []TypeOverride{{Glob: "*.x", Language: "cobol"}}); !errors.IsCode(err, errors.CodeUnknownLanguage) {
		t.Fatalf("expected unknown language error, got %v", err)
	}
	if _, err := New(registry, nil, []TypeOverride{{Glob: "[", Language: "go"}}); !errors.IsCode(err, errors.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestSelect_Shebang(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
		return path
	}

	s := newSelector(t, nil, "python", "ruby")
	cases := []struct {
		path string
		want string
	}{
		{write("tool", "#!/usr/bin/env python3\nprint(1)\n"), "python"},
		{write("task", "#!/usr/bin/ruby -w\nputs 1\n"), "ruby"},
		{write("split", "#!/usr/bin/env -S ruby --disable-gems\n"), "ruby"},
		{write("script", "#!/bin/sh\necho hi\n"), ""},
		{write("plain", "no shebang here\n"), ""},
		{write("empty", ""), ""},
		{write("notes.txt", "#!/usr/bin/env python3\n"), ""},
	}
	for _, tc := range cases {
		if got := selected(s, tc.path); got != tc.want {
			t.Errorf("Select(%s) = %q, want %q", filepath.Base(tc.path), got, tc.want)
		}
	}
}

func TestParseShebang(t *testing.T) {
	cases := map[string]string{
		"#!/usr/bin/env node":          "node",
		"#! /usr/local/bin/python3.12": "/usr/local/bin/python3.12",
		"#!/usr/bin/env FOO=1 python":  "python",
		"#!":                           "",
		"#!/usr/bin/env":               "",
	}
	for head, want := range cases {
		got, _ := parseShebang([]byte(head))
		if got != want {
			t.Errorf("parseShebang(%q) = %q, want %q", head, got, want)
		}
	}
}
