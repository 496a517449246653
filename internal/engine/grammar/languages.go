package grammar

import (
	"sort"
	"unsafe"

	forest_cpp "github.com/alexaandru/go-sitter-forest/cpp"
	forest_elixir "github.com/alexaandru/go-sitter-forest/elixir"
	forest_elm "github.com/alexaandru/go-sitter-forest/elm"
	forest_haskell "github.com/alexaandru/go-sitter-forest/haskell"
	forest_nix "github.com/alexaandru/go-sitter-forest/nix"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammars maps a language ID to its compiled-in grammar.
var grammars = map[string]func() unsafe.Pointer{
	"c":          tree_sitter_c.Language,
	"cpp":        forest_cpp.GetLanguage,
	"css":        tree_sitter_css.Language,
	"elixir":     forest_elixir.GetLanguage,
	"elm":        forest_elm.GetLanguage,
	"go":         tree_sitter_go.Language,
	"haskell":    forest_haskell.GetLanguage,
	"html":       tree_sitter_html.Language,
	"java":       tree_sitter_java.Language,
	"javascript": tree_sitter_javascript.Language,
	"nix":        forest_nix.GetLanguage,
	"php":        tree_sitter_php.LanguagePHP,
	"python":     tree_sitter_python.Language,
	"ruby":       tree_sitter_ruby.Language,
	"rust":       tree_sitter_rust.Language,
	"typescript": tree_sitter_typescript.LanguageTypescript,
	"tsx":        tree_sitter_typescript.LanguageTSX,
}

func hasGrammar(id string) bool {
	_, ok := grammars[id]
	return ok
}

func loadGrammar(id string) (*sitter.Language, bool) {
	load, ok := grammars[id]
	if !ok {
		return nil, false
	}
	return sitter.NewLanguage(load()), true
}

// CompiledLanguages returns the IDs of every grammar linked into the binary.
func CompiledLanguages() []string {
	ids := make([]string, 0, len(grammars))
	for id := range grammars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
