// # internal/ui/report/formats/formats.go
package formats

import (
	"io"
	"strings"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/extract"
)

type Format string

const (
	FormatLines      Format = "lines"
	FormatJSON       Format = "json"
	FormatJSONLines  Format = "json-lines"
	FormatPrettyJSON Format = "pretty-json"
)

// Formats lists every accepted --format value.
var Formats = []Format{FormatLines, FormatJSON, FormatJSONLines, FormatPrettyJSON}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Newf(errors.CodeConfig, "unknown output format %q (want one of %s)", s, formatList())
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Renderer writes search results in one format. Render writes a complete
// result; RenderFile writes a single file as soon as it is available, for
// watch mode.
type Renderer interface {
	Render(w io.Writer, files []*extract.File) error
	RenderFile(w io.Writer, file *extract.File) error
}

// NewRenderer returns the renderer for format. Color only affects lines.
func NewRenderer(format Format, color bool) (Renderer, error) {
	switch format {
	case FormatLines:
		return newLinesRenderer(color), nil
	case FormatJSON:
		return &jsonRenderer{}, nil
	case FormatJSONLines:
		return &jsonRenderer{perLine: true}, nil
	case FormatPrettyJSON:
		return &jsonRenderer{indent: true}, nil
	}
	return nil, errors.Newf(errors.CodeConfig, "unknown output format %q", format)
}

func outputError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.CodeOutput, "write output")
}
