package grammar

import (
	"fmt"
	"strings"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImplicitCapture names the capture added to patterns that declare none.
const ImplicitCapture = "query"

// Binding pairs a grammar with a compiled query and a parser pool. It is
// immutable after Resolve and shared read-only by every extraction worker;
// each worker runs the query through its own cursor.
type Binding struct {
	language string
	lang     *sitter.Language
	query    *sitter.Query
	source   string
	captures []string
	helper   []bool
	parsers  *parser.Pool
}

// Resolve compiles patterns for language id into one query. Patterns are
// joined in order, so later patterns produce matches after earlier ones at
// the same position.
func (r *Registry) Resolve(id string, patterns []string) (*Binding, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	spec, ok := r.specs[id]
	if !ok {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeUnknownLanguage, "unknown language %q (see `treegrep languages`)", id),
			errors.CtxLanguage, id)
	}
	if !spec.Enabled {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeUnknownLanguage, "language %q is disabled", id),
			errors.CtxLanguage, id)
	}
	lang, ok := loadGrammar(id)
	if !ok {
		return nil, errors.Newf(errors.CodeUnknownLanguage, "language %q has no compiled grammar", id)
	}
	if len(patterns) == 0 {
		return nil, errors.AddContext(
			errors.New(errors.CodeInvalidQuery, "no query patterns"),
			errors.CtxLanguage, id)
	}

	source, err := composeQuery(id, lang, patterns)
	if err != nil {
		return nil, err
	}
	query, qerr := sitter.NewQuery(lang, source)
	if qerr != nil {
		return nil, queryError(id, -1, qerr)
	}

	names := query.CaptureNames()
	helper := make([]bool, len(names))
	for i, name := range names {
		helper[i] = strings.HasPrefix(name, "_")
	}
	return &Binding{
		language: id,
		lang:     lang,
		query:    query,
		source:   source,
		captures: append([]string(nil), names...),
		helper:   helper,
		parsers:  parser.NewPool(id, lang, 0),
	}, nil
}

// composeQuery validates each pattern on its own, so errors point at the
// pattern the user wrote, and appends the implicit capture where needed.
func composeQuery(id string, lang *sitter.Language, patterns []string) (string, error) {
	parts := make([]string, 0, len(patterns))
	for i, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			err := errors.Newf(errors.CodeInvalidQuery, "query pattern %d for %s is empty", i+1, id)
			return "", errors.AddContext(err, errors.CtxLanguage, id)
		}
		probe, qerr := sitter.NewQuery(lang, pattern)
		if qerr != nil {
			return "", queryError(id, i, qerr)
		}
		if len(probe.CaptureNames()) == 0 {
			// On its own line so a trailing ; comment cannot swallow it.
			pattern += "\n@" + ImplicitCapture
		}
		probe.Close()
		parts = append(parts, pattern)
	}
	return strings.Join(parts, "\n"), nil
}

func queryError(id string, index int, qerr *sitter.QueryError) error {
	msg := fmt.Sprintf("query for %s does not compile at line %d column %d", id, qerr.Row+1, qerr.Column+1)
	if index >= 0 {
		msg = fmt.Sprintf("query pattern %d for %s does not compile at line %d column %d", index+1, id, qerr.Row+1, qerr.Column+1)
	}
	err := errors.Wrap(qerr, errors.CodeInvalidQuery, msg)
	return errors.AddContext(err, errors.CtxLanguage, id)
}

func (b *Binding) Language() string {
	return b.language
}

func (b *Binding) Grammar() *sitter.Language {
	return b.lang
}

func (b *Binding) Query() *sitter.Query {
	return b.query
}

// Source is the combined query text that was compiled.
func (b *Binding) Source() string {
	return b.source
}

func (b *Binding) Parsers() *parser.Pool {
	return b.parsers
}

// CaptureName resolves a capture index. ok is false for helper captures,
// whose names start with an underscore and are never emitted.
func (b *Binding) CaptureName(index uint32) (name string, ok bool) {
	if int(index) >= len(b.captures) {
		return "", false
	}
	return b.captures[index], !b.helper[index]
}

// CaptureNames returns the emitted capture names in declaration order.
func (b *Binding) CaptureNames() []string {
	out := make([]string, 0, len(b.captures))
	for i, name := range b.captures {
		if !b.helper[i] {
			out = append(out, name)
		}
	}
	return out
}

// Close releases the compiled query and the idle parsers. The binding must
// not be used afterwards.
func (b *Binding) Close() {
	if b == nil || b.query == nil {
		return
	}
	b.query.Close()
	b.query = nil
	b.parsers.Close()
}
