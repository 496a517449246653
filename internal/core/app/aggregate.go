package app

import (
	"sort"
	"treegrep/internal/engine/extract"
)

// Aggregate returns files in output order. Unsorted output keeps completion
// order; sorted output orders by path, then language. Records inside a file
// are never reordered, and files itself is left untouched.
func Aggregate(files []*extract.File, sorted bool) []*extract.File {
	out := append([]*extract.File(nil), files...)
	if !sorted {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Language < out[j].Language
	})
	return out
}
