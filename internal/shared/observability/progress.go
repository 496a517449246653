package observability

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress is a spinner counting searched files. A nil *Progress is valid and
// does nothing.
type Progress struct {
	bar *progressbar.ProgressBar
}

func NewProgress(w io.Writer, description string) *Progress {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar}
}

func (p *Progress) Add(n int) {
	if p == nil {
		return
	}
	_ = p.bar.Add(n)
}

func (p *Progress) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
