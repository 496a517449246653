package extract

import (
	"context"
	"os"
	"time"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/grammar"
	"treegrep/internal/shared/observability"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Extractor runs one binding's query over files. It holds no per-file state
// and is safe for concurrent use.
type Extractor struct {
	binding *grammar.Binding
}

func New(binding *grammar.Binding) *Extractor {
	return &Extractor{binding: binding}
}

func (e *Extractor) Language() string {
	return e.binding.Language()
}

// ExtractFile reads path and extracts its records. A file without records
// yields (nil, nil).
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, errors.CodeFileRead, "read file")
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.ExtractSource(path, source)
}

// ExtractSource parses source and collects one record per non-helper capture
// of every match. Syntax errors in source yield a tree with error nodes and
// are searched like any other tree. Source must be UTF-8.
func (e *Extractor) ExtractSource(path string, source []byte) (*File, error) {
	if len(source) == 0 {
		return nil, nil
	}
	if !utf8.Valid(source) {
		err := errors.New(errors.CodeEncoding, "file is not valid UTF-8")
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	language := e.binding.Language()

	pool := e.binding.Parsers()
	sp := pool.Get()
	observability.ParsersActive.WithLabelValues(language).Inc()
	defer func() {
		pool.Put(sp)
		observability.ParsersActive.WithLabelValues(language).Dec()
	}()

	start := time.Now()
	tree := sp.Parse(source, nil)
	observability.ParsingDuration.WithLabelValues(language).Observe(time.Since(start).Seconds())
	if tree == nil {
		err := errors.New(errors.CodeParse, "parser returned no tree")
		err = errors.AddContext(err, errors.CtxLanguage, language)
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	defer tree.Close()

	start = time.Now()
	records := e.collect(tree.RootNode(), source)
	observability.QueryDuration.WithLabelValues(language).Observe(time.Since(start).Seconds())
	observability.FilesSearchedTotal.WithLabelValues(language).Inc()

	if len(records) == 0 {
		return nil, nil
	}
	observability.FilesMatchedTotal.WithLabelValues(language).Inc()
	observability.RecordsTotal.WithLabelValues(language).Add(float64(len(records)))
	return &File{Path: path, Language: language, Matches: records}, nil
}

func (e *Extractor) collect(root *sitter.Node, source []byte) []Record {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var records []Record
	matches := cursor.Matches(e.binding.Query(), root, source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, capture := range match.Captures {
			name, ok := e.binding.CaptureName(capture.Index)
			if !ok {
				continue
			}
			records = append(records, newRecord(name, &capture.Node, source))
		}
	}
	return records
}

func newRecord(name string, node *sitter.Node, source []byte) Record {
	start, end := node.StartPosition(), node.EndPosition()
	return Record{
		Kind:  node.Kind(),
		Name:  name,
		Text:  string(source[node.StartByte():node.EndByte()]),
		Start: Point{Row: start.Row, Column: start.Column},
		End:   Point{Row: end.Row, Column: end.Column},
	}
}
