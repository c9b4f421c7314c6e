package models

import "fmt"

// FileSignal holds the facts derived from one source file's content.
type FileSignal struct {
	Path               string  `json:"path"`
	Language           string  `json:"language,omitempty"`
	Lines              int     `json:"lines"`
	BranchLines        int     `json:"branch_lines"`
	CommentLines       int     `json:"comment_lines"`
	TabIndented        int     `json:"tab_indented"`
	SpaceIndented      int     `json:"space_indented"`
	ComplexityScore    int     `json:"complexity_score"` // 0-100, higher is simpler
	HasTests           bool    `json:"has_tests"`
	DocumentationRatio float64 `json:"documentation_ratio"`
}

// IsDocumented reports whether the comment ratio exceeds threshold.
func (s FileSignal) IsDocumented(threshold float64) bool {
	return s.DocumentationRatio > threshold
}

// LineRange is an inclusive, 1-based span of lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of lines covered.
func (r LineRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// String formats the range as "start-end".
func (r LineRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// DuplicateFinding is a block of identical lines shared by two files.
type DuplicateFinding struct {
	FileA  string    `json:"file_a"`
	LinesA LineRange `json:"lines_a"`
	FileB  string    `json:"file_b"`
	LinesB LineRange `json:"lines_b"`
}

// String describes the finding for humans.
func (d DuplicateFinding) String() string {
	return fmt.Sprintf("%s: Lines %s (similar to %s: Lines %s)", d.FileA, d.LinesA, d.FileB, d.LinesB)
}
