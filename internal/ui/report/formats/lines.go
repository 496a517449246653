package formats

import (
	"fmt"
	"io"
	"treegrep/internal/engine/extract"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// linesRenderer writes one record per line as path:row:column:name:text.
// Rows and columns are 1-based. Text is written verbatim, so a multi-line
// capture spans several output lines.
type linesRenderer struct {
	color     bool
	pathStyle lipgloss.Style
	posStyle  lipgloss.Style
	nameStyle lipgloss.Style
}

func newLinesRenderer(color bool) *linesRenderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI256)
	return &linesRenderer{
		color:     color,
		pathStyle: r.NewStyle().Foreground(lipgloss.Color("#C084FC")),
		posStyle:  r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		nameStyle: r.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true),
	}
}

func (l *linesRenderer) Render(w io.Writer, files []*extract.File) error {
	for _, file := range files {
		if err := l.RenderFile(w, file); err != nil {
			return err
		}
	}
	return nil
}

func (l *linesRenderer) RenderFile(w io.Writer, file *extract.File) error {
	if file == nil {
		return nil
	}
	for _, rec := range file.Matches {
		path := file.Path
		pos := fmt.Sprintf("%d:%d", rec.Start.Row+1, rec.Start.Column+1)
		name := rec.Name
		if l.color {
			path = l.pathStyle.Render(path)
			pos = l.posStyle.Render(pos)
			name = l.nameStyle.Render(name)
		}
		if _, err := fmt.Fprintf(w, "%s:%s:%s:%s\n", path, pos, name, rec.Text); err != nil {
			return outputError(err)
		}
	}
	return nil
}
