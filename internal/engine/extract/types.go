package extract

import "fmt"

// Point is a zero-based position. Column counts bytes from the start of the
// line, as tree-sitter reports it.
type Point struct {
	Row    uint `json:"row"`
	Column uint `json:"column"`
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Record is one (capture name, node) pair from a query match.
type Record struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Text  string `json:"text"`
	Start Point  `json:"start"`
	End   Point  `json:"end"`
}

// File holds every record extracted from one file, in match order.
type File struct {
	Path     string   `json:"path"`
	Language string   `json:"file_type"`
	Matches  []Record `json:"matches"`
}
