package score

import (
	"time"

	"github.com/panbanda/repohealth/pkg/analyzer/duplicates"
	"github.com/panbanda/repohealth/pkg/models"
)

// Input is everything the aggregator needs for one repository. Zero values
// mean "unknown" and select the documented fallback for each metric.
type Input struct {
	// Empty marks a repository with no content. Every metric is 0.
	Empty bool

	// Remote metadata.
	SizeKB         int
	Language       string
	OpenIssueCount int
	PushedAt       time.Time
	HasWiki        bool
	DefaultBranch  string

	// Tree classification.
	Blobs            int
	SourceFiles      int
	HasReadme        bool
	HasDocsDir       bool
	AllDocumentation bool

	// Signals holds one entry per analyzed source file.
	Signals []models.FileSignal
	// Duplicates is nil when duplicate detection did not run.
	Duplicates *duplicates.Result

	// Now is the reference time for recency metrics.
	Now time.Time
}

// Analyzed reports whether any file content was inspected.
func (in Input) Analyzed() bool {
	return len(in.Signals) > 0
}

// DaysSincePush returns whole days since the last push, or -1 when unknown.
// Pushes in the future count as today.
func (in Input) DaysSincePush() int {
	if in.PushedAt.IsZero() {
		return -1
	}
	d := in.Now.Sub(in.PushedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// CommentRatio returns comment lines over all lines across analyzed files.
func (in Input) CommentRatio() float64 {
	lines, comments := 0, 0
	for _, s := range in.Signals {
		lines += s.Lines
		comments += s.CommentLines
	}
	if lines == 0 {
		return 0
	}
	return float64(comments) / float64(lines)
}
