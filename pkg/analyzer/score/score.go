// Package score turns repository signals into the fixed metric schema and
// the aggregate quality score.
package score

import (
	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

// Aggregator computes MetricSets. It is stateless and safe for concurrent
// use.
type Aggregator struct {
	config       config.ScoreConfig
	docThreshold float64
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithConfig sets the metric constants.
func WithConfig(cfg config.ScoreConfig) Option {
	return func(a *Aggregator) {
		a.config = cfg
	}
}

// WithDocumentationThreshold sets the comment ratio above which a
// repository counts as documented.
func WithDocumentationThreshold(threshold float64) Option {
	return func(a *Aggregator) {
		a.docThreshold = threshold
	}
}

// New creates a new aggregator with default constants.
func New(opts ...Option) *Aggregator {
	defaults := config.DefaultConfig()
	a := &Aggregator{
		config:       defaults.Score,
		docThreshold: defaults.Analysis.DocumentationThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes every metric. An empty repository yields all zeros.
func (a *Aggregator) Aggregate(in Input) models.MetricSet {
	if in.Empty {
		return models.MetricSet{}
	}

	c := a.config
	m := models.MetricSet{
		CodeComplexity:       CodeComplexity(in),
		CodeDuplication:      CodeDuplication(in, c.DuplicationFallback),
		CodeStyleConsistency: CodeStyleConsistency(in, c.StyleFallback),
		TestCoverage:         TestCoverage(in, c.SmallRepoFiles, c.TestedRatio, c.PartialTestScore),
		OpenIssuesAndPRs:     OpenIssuesAndPRs(in.OpenIssueCount, c.IssuePenalty),
		DependencyManagement: DependencyManagement(in),
		DocumentationQuality: DocumentationQuality(in, a.docThreshold),
		CommitFrequency:      CommitFrequency(in),
		BranchingStrategy:    BranchingStrategy(in.DefaultBranch, c.MainBranchScore, c.OtherBranchScore),
	}
	m.Clamp()
	return m
}
