package extract

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/grammar"
)

func newExtractor(t *testing.T, language string, patterns ...string) *Extractor {
	t.Helper()
	registry, err := grammar.BuildRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	binding, err := registry.Resolve(language, patterns)
	if err != nil {
		t.Fatalf("resolve %s: %v", language, err)
	}
	t.Cleanup(binding.Close)
	return New(binding)
}

func TestExtractSource_IdentifierScenario(t *testing.T) {
	ex := newExtractor(t, "javascript", "(identifier)")

	file, err := ex.ExtractSource("a.js", []byte("let x = 1;\nlet y = x;\n"))
	if err != nil {
		t.Fatal(err)
	}
	if file == nil {
		t.Fatal("expected records")
	}
	want := []Record{
		{Kind: "identifier", Name: "query", Text: "x", Start: Point{0, 4}, End: Point{0, 5}},
		{Kind: "identifier", Name: "query", Text: "y", Start: Point{1, 4}, End: Point{1, 5}},
		{Kind: "identifier", Name: "query", Text: "x", Start: Point{1, 8}, End: Point{1, 9}},
	}
	if !reflect.DeepEqual(file.Matches, want) {
		t.Fatalf("unexpected records:\n got %+v\nwant %+v", file.Matches, want)
	}
	if file.Path != "a.js" || file.Language != "javascript" {
		t.Fatalf("unexpected file header %q %q", file.Path, file.Language)
	}
}

func TestExtractSource_NoMatchIsAbsent(t *testing.T) {
	ex := newExtractor(t, "python", "(class_definition name: (identifier) @name)")

	file, err := ex.ExtractSource("m.py", []byte("def f():\n    return 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if file != nil {
		t.Fatalf("expected absence, got %+v", file)
	}
}

func TestExtractSource_EmptySource(t *testing.T) {
	ex := newExtractor(t, "python", "(_) @node")

	file, err := ex.ExtractSource("empty.py", nil)
	if err != nil || file != nil {
		t.Fatalf("expected (nil, nil) for empty source, got %+v, %v", file, err)
	}
}

func TestExtractSource_HelperCapturesAreSkipped(t *testing.T) {
	ex := newExtractor(t, "python",
		`((function_definition name: (identifier) @name) @_def)`)

	file, err := ex.ExtractSource("m.py", []byte("def alpha():\n    pass\n\ndef beta():\n    pass\n"))
	if err != nil {
		t.Fatal(err)
	}
	if file == nil || len(file.Matches) != 2 {
		t.Fatalf("expected two records, got %+v", file)
	}
	for i, want := range []string{"alpha", "beta"} {
		rec := file.Matches[i]
		if rec.Name != "name" || rec.Text != want {
			t.Fatalf("record %d: expected name=%s, got %+v", i, want, rec)
		}
	}
}

func TestExtractSource_MultipleCapturesPerMatch(t *testing.T) {
	ex := newExtractor(t, "python",
		`(function_definition name: (identifier) @fn parameters: (parameters) @params)`)

	file, err := ex.ExtractSource("m.py", []byte("def add(a, b):\n    return a + b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if file == nil || len(file.Matches) != 2 {
		t.Fatalf("expected two records, got %+v", file)
	}
	if file.Matches[0].Name != "fn" || file.Matches[0].Text != "add" {
		t.Fatalf("unexpected first record %+v", file.Matches[0])
	}
	if file.Matches[1].Name != "params" || file.Matches[1].Text != "(a, b)" {
		t.Fatalf("unexpected second record %+v", file.Matches[1])
	}
}

func TestExtractSource_OverlappingCaptures(t *testing.T) {
	ex := newExtractor(t, "javascript", "((identifier) @a @b)")

	file, err := ex.ExtractSource("a.js", []byte("let x = 1;"))
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{Kind: "identifier", Name: "a", Text: "x", Start: Point{0, 4}, End: Point{0, 5}},
		{Kind: "identifier", Name: "b", Text: "x", Start: Point{0, 4}, End: Point{0, 5}},
	}
	if file == nil || !reflect.DeepEqual(file.Matches, want) {
		t.Fatalf("expected one record per capture name:\n got %+v\nwant %+v", file, want)
	}
}

func TestExtractSource_PatternWithTrailingComment(t *testing.T) {
	ex := newExtractor(t, "javascript", "(identifier) ; any identifier")

	file, err := ex.ExtractSource("a.js", []byte("let x = 1;"))
	if err != nil {
		t.Fatal(err)
	}
	if file == nil || len(file.Matches) != 1 || file.Matches[0].Name != "query" {
		t.Fatalf("expected one implicit record, got %+v", file)
	}
}

func TestExtractSource_SyntaxErrorsStillSearched(t *testing.T) {
	ex := newExtractor(t, "python", "(function_definition name: (identifier) @name)")

	file, err := ex.ExtractSource("broken.py", []byte("def ok():\n    pass\n\nx = (\n"))
	if err != nil {
		t.Fatalf("syntax errors must not fail extraction: %v", err)
	}
	if file == nil || file.Matches[0].Text != "ok" {
		t.Fatalf("expected record for well-formed function, got %+v", file)
	}
}

func TestExtractSource_Deterministic(t *testing.T) {
	ex := newExtractor(t, "go", "(identifier) @id", "(call_expression function: (_) @callee)")
	src := []byte("package main\n\nfunc main() {\n\tprintln(a, b)\n\tfoo.Bar(c)\n}\n")

	first, err := ex.ExtractSource("main.go", src)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := ex.ExtractSource("main.go", src)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different records", i)
		}
	}
}

func TestExtractFile(t *testing.T) {
	ex := newExtractor(t, "python", "(identifier) @id")
	dir := t.TempDir()

	t.Run("Reads", func(t *testing.T) {
		path := filepath.Join(dir, "ok.py")
		if err := os.WriteFile(path, []byte("value = 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		file, err := ex.ExtractFile(context.Background(), path)
		if err != nil {
			t.Fatal(err)
		}
		if file == nil || file.Matches[0].Text != "value" {
			t.Fatalf("unexpected result %+v", file)
		}
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(dir, "empty.py")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		file, err := ex.ExtractFile(context.Background(), path)
		if err != nil || file != nil {
			t.Fatalf("expected (nil, nil), got %+v, %v", file, err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ex.ExtractFile(context.Background(), filepath.Join(dir, "missing.py"))
		if !errors.IsCode(err, errors.CodeFileRead) {
			t.Fatalf("expected file read error, got %v", err)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		path := filepath.Join(dir, "latin1.py")
		if err := os.WriteFile(path, []byte{'x', '=', 0xff, 0xfe, '\n'}, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ex.ExtractFile(context.Background(), path)
		if !errors.IsCode(err, errors.CodeEncoding) {
			t.Fatalf("expected encoding error, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ex.ExtractFile(ctx, filepath.Join(dir, "ok.py"))
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
