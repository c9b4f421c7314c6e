package duplicates

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

// SourceFile is one fetched file to compare.
type SourceFile struct {
	Path    string
	Content []byte
}

// Config holds duplicate detection parameters.
type Config struct {
	// Window is the number of consecutive lines that must match.
	Window int
	// MaxFiles caps how many files are compared; the largest are kept.
	MaxFiles int
	// MaxFindings caps how many findings are reported in detail.
	MaxFindings int
	// Workers bounds concurrent pair scans (<= 0 uses 2x NumCPU).
	Workers int
}

// DefaultConfig returns the default duplicate detection settings.
func DefaultConfig() Config {
	d := config.DefaultConfig().Duplicates
	return Config{
		Window:      d.Window,
		MaxFiles:    d.MaxFiles,
		MaxFindings: d.MaxFindings,
	}
}

// Result is the outcome of one detection run.
type Result struct {
	// Findings are the first MaxFindings findings in discovery order.
	Findings []models.DuplicateFinding
	// TotalFindings counts every finding, including those not kept.
	TotalFindings int
	// DuplicatedLines holds the 1-based duplicated line numbers per file.
	DuplicatedLines map[string]*roaring.Bitmap
	// TotalLines sums the line counts of every considered file.
	TotalLines      int
	FilesConsidered int
}

// DuplicatedLineCount returns the number of distinct duplicated lines
// across all files.
func (r *Result) DuplicatedLineCount() int {
	if r == nil {
		return 0
	}
	n := uint64(0)
	for _, bm := range r.DuplicatedLines {
		n += bm.GetCardinality()
	}
	return int(n)
}

// Ratio returns duplicated lines over total lines, 0 when nothing was read.
func (r *Result) Ratio() float64 {
	if r == nil || r.TotalLines == 0 {
		return 0
	}
	ratio := float64(r.DuplicatedLineCount()) / float64(r.TotalLines)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Area returns a short description of the first finding, or "" when there
// are none.
func (r *Result) Area() string {
	if r == nil || len(r.Findings) == 0 {
		return ""
	}
	return r.Findings[0].String()
}
