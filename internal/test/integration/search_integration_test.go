package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"treegrep/internal/core/app"
	"treegrep/internal/core/config"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/extract"
	"treegrep/internal/ui/cli"
	"treegrep/internal/ui/report/formats"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProject(t *testing.T, root string) {
	files := map[string]string{
		".gitignore":        "vendor/\n*.gen.go\n",
		"main.go":           "package main\n\nfunc main() {\n\thelper()\n}\n\nfunc helper() {}\n",
		"api.gen.go":        "package main\n\nfunc generated() {}\n",
		"vendor/dep/dep.go": "package dep\n\nfunc Dep() {}\n",
		"pkg/util/util.go":  "package util\n\nfunc A() {}\n\nfunc B() {}\n",
		"pkg/util/empty.go": "",
		"web/app.js":        "function run() { return load(); }\nfunction load() {}\n",
		"scripts/build":     "#!/usr/bin/env python3\ndef build():\n    pass\n",
		"scripts/notes.txt": "func nothing() {}\n",
		"pkg/local/skip.go": "package local\n\nfunc Skip() {}\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	_, err := gogit.PlainInit(root, false)
	require.NoError(t, err)
	exclude := filepath.Join(root, ".git", "info", "exclude")
	require.NoError(t, os.MkdirAll(filepath.Dir(exclude), 0o755))
	require.NoError(t, os.WriteFile(exclude, []byte("pkg/local/\n"), 0o644))
}

const goFuncs = "(function_declaration name: (identifier) @fn)"

func search(t *testing.T, root string, mutate func(*config.RunConfig), pairs ...[2]string) []*extract.File {
	t.Helper()
	cfg, err := config.NewRunConfig(config.Default(), config.GroupQueries(pairs), []string{root})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := a.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	return app.Aggregate(res.Files, true)
}

func relPaths(t *testing.T, root string, files []*extract.File) []string {
	var out []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestSearch_IgnoreModes(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)

	respected := relPaths(t, root, search(t, root, nil, [2]string{"go", goFuncs}))
	assert.Equal(t, []string{"main.go", "pkg/util/util.go"}, respected)

	all := relPaths(t, root, search(t, root, func(c *config.RunConfig) { c.GitIgnore = false }, [2]string{"go", goFuncs}))
	assert.Equal(t, []string{"api.gen.go", "main.go", "pkg/local/skip.go", "pkg/util/util.go", "vendor/dep/dep.go"}, all)
}

func TestSearch_ExplicitRootInsideIgnoredDirectory(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)

	vendor := filepath.Join(root, "vendor")
	files := search(t, vendor, nil, [2]string{"go", goFuncs})
	assert.Equal(t, []string{"dep/dep.go"}, relPaths(t, vendor, files))

	single := search(t, filepath.Join(vendor, "dep", "dep.go"), nil, [2]string{"go", goFuncs})
	assert.Len(t, single, 1)
}

func TestSearch_AbsenceAndOrdering(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)

	files := search(t, root, nil, [2]string{"go", goFuncs})
	for _, f := range files {
		assert.NotEmpty(t, f.Matches, "files without records must be absent: %s", f.Path)
		assert.NotEqual(t, "empty.go", filepath.Base(f.Path))

		positions := make([]int, len(f.Matches))
		for i, m := range f.Matches {
			positions[i] = int(m.Start.Row)*10000 + int(m.Start.Column)
		}
		assert.True(t, sort.IntsAreSorted(positions), "records must follow document order in %s", f.Path)
	}

	require.Len(t, files, 2)
	var names []string
	for _, m := range files[0].Matches {
		names = append(names, m.Text)
	}
	assert.Equal(t, []string{"main", "helper"}, names)
}

func TestSearch_WorkerCountIndependence(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)
	pairs := [][2]string{
		{"go", goFuncs},
		{"javascript", "(function_declaration name: (identifier) @fn)"},
		{"python", "(function_definition name: (identifier) @fn)"},
	}

	var baseline []*extract.File
	for _, workers := range []int{1, 3, 16} {
		files := search(t, root, func(c *config.RunConfig) { c.Workers = workers }, pairs...)
		if baseline == nil {
			baseline = files
			continue
		}
		assert.Equal(t, baseline, files, "workers=%d", workers)
	}
	assert.Contains(t, relPaths(t, root, baseline), "scripts/build", "shebang selection")
	assert.Contains(t, relPaths(t, root, baseline), "web/app.js")
}

func TestSearch_JSONRoundTripAndSortIdempotence(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)
	files := search(t, root, nil, [2]string{"go", goFuncs}, [2]string{"javascript", "(call_expression) @call"})

	assert.Equal(t, files, app.Aggregate(files, true))

	for _, format := range []formats.Format{formats.FormatJSON, formats.FormatJSONLines, formats.FormatPrettyJSON} {
		r, err := formats.NewRenderer(format, false)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, files))
		decoded, err := formats.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, files, decoded, "format %s", format)
	}
}

func TestSearch_IdentifierScenario(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("let x = 1;\nlet y = x;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.js"), nil, 0o644))

	files := search(t, root, nil, [2]string{"javascript", "(identifier)"})
	require.Len(t, files, 1)
	assert.Equal(t, []extract.Record{
		{Kind: "identifier", Name: "query", Text: "x", Start: extract.Point{Row: 0, Column: 4}, End: extract.Point{Row: 0, Column: 5}},
		{Kind: "identifier", Name: "query", Text: "y", Start: extract.Point{Row: 1, Column: 4}, End: extract.Point{Row: 1, Column: 5}},
		{Kind: "identifier", Name: "query", Text: "x", Start: extract.Point{Row: 1, Column: 8}, End: extract.Point{Row: 1, Column: 9}},
	}, files[0].Matches)
}

func TestSearch_MissingRootIsFatal(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)
	missing := filepath.Join(root, "does-not-exist")

	cfg, err := config.NewRunConfig(config.Default(), config.GroupQueries([][2]string{{"go", goFuncs}}), []string{root, missing})
	require.NoError(t, err)
	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	var stdout, stderr bytes.Buffer
	code := cli.Run([]string{"-q", "go", goFuncs, root, missing}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String(), "a fatal error must not produce partial output")
	assert.Contains(t, stderr.String(), "does-not-exist")
}

func TestCLI_LinesMatchJSON(t *testing.T) {
	root := t.TempDir()
	createProject(t, root)

	var linesOut, jsonOut, stderr bytes.Buffer
	require.Equal(t, 0, cli.Run([]string{"--sort", "--color", "never", "-q", "go", goFuncs, root}, &linesOut, &stderr), stderr.String())
	require.Equal(t, 0, cli.Run([]string{"--sort", "-f", "json-lines", "-q", "go", goFuncs, root}, &jsonOut, &stderr), stderr.String())

	files, err := formats.Decode(&jsonOut)
	require.NoError(t, err)
	var fromJSON []string
	for _, f := range files {
		for _, m := range f.Matches {
			fromJSON = append(fromJSON, strings.Join([]string{f.Path, strconv.FormatUint(uint64(m.Start.Row+1), 10), strconv.FormatUint(uint64(m.Start.Column+1), 10), m.Name, m.Text}, ":"))
		}
	}
	assert.Equal(t, strings.Join(fromJSON, "\n")+"\n", linesOut.String())
}
