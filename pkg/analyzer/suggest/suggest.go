// Package suggest turns metrics and evidence into prioritized advice.
package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/panbanda/repohealth/pkg/models"
)

// DefaultThreshold is the metric value below which advice is given.
const DefaultThreshold = 70

// Input is everything a suggestion may refer to.
type Input struct {
	Repository  string
	Empty       bool
	Description string
	Metrics     models.MetricSet
	Evidence    models.Evidence
}

// Generator produces suggestions. It is stateless.
type Generator struct {
	threshold int
}

// Option configures the Generator.
type Option func(*Generator)

// WithThreshold sets the metric value below which a suggestion is emitted.
func WithThreshold(t int) Option {
	return func(g *Generator) {
		g.threshold = t
	}
}

// New creates a generator.
func New(opts ...Option) *Generator {
	g := &Generator{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Suggest returns one suggestion per metric below the threshold, worst
// metric first (schema order breaks ties), followed by hygiene advice. An
// empty repository gets only the onboarding suggestion.
func (g *Generator) Suggest(in Input) []string {
	if in.Empty {
		return []string{models.EmptyRepositorySuggestion}
	}

	var low []models.MetricName
	for _, name := range models.MetricNames() {
		if in.Metrics.Get(name) < g.threshold {
			low = append(low, name)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		return in.Metrics.Get(low[i]) < in.Metrics.Get(low[j])
	})

	suggestions := make([]string, 0, len(low)+1)
	for _, name := range low {
		suggestions = append(suggestions, forMetric(name, in))
	}

	if strings.TrimSpace(in.Description) == "" {
		suggestions = append(suggestions,
			fmt.Sprintf("Add a description to %s so visitors understand its purpose at a glance.", in.Repository))
	}

	return suggestions
}

func forMetric(name models.MetricName, in Input) string {
	repo, ev := in.Repository, in.Evidence

	switch name {
	case models.MetricCodeComplexity:
		if known(ev.ComplexFunction, models.ComplexityNotAvailable, models.UnknownFunctionName) {
			return fmt.Sprintf("Review and refactor complex areas of %s, particularly %s.", repo, ev.ComplexFunction)
		}
		return fmt.Sprintf("Break down large functions in %s into smaller, more manageable pieces.", repo)

	case models.MetricCodeDuplication:
		if known(ev.DuplicateArea, models.DuplicationNotAvailable) {
			return fmt.Sprintf("Address code duplication in %s, particularly in %s.", repo, ev.DuplicateArea)
		}
		return fmt.Sprintf("Reduce code duplication in %s by extracting shared utilities.", repo)

	case models.MetricCodeStyleConsistency:
		return fmt.Sprintf("Adopt one indentation style across %s and enforce it with a formatter.", repo)

	case models.MetricTestCoverage:
		if len(ev.UntestedFiles) > 0 {
			return fmt.Sprintf("Increase test coverage for %s. Start by adding tests for %s.", repo, strings.Join(ev.UntestedFiles, ", "))
		}
		return fmt.Sprintf("Increase test coverage for %s. Start by adding tests for critical components and functions.", repo)

	case models.MetricOpenIssuesAndPRs:
		issue := known(ev.TopIssue, models.NoOpenIssues, models.Unavailable)
		pr := known(ev.OldestPR, models.NoOpenPullRequests, models.Unavailable)
		switch {
		case issue && pr:
			return fmt.Sprintf("Address the top issue: %q and review the oldest PR: %q.", ev.TopIssue, ev.OldestPR)
		case issue:
			return fmt.Sprintf("Address the top issue: %q.", ev.TopIssue)
		case pr:
			return fmt.Sprintf("Review and provide feedback on the oldest PR: %q.", ev.OldestPR)
		default:
			return fmt.Sprintf("Set up a weekly triage session to manage open issues and PRs in %s.", repo)
		}

	case models.MetricDependencyManagement:
		return fmt.Sprintf("Review and update outdated dependencies in %s.", repo)

	case models.MetricDocumentationQuality:
		if len(ev.UndocumentedFiles) > 0 {
			return fmt.Sprintf("Improve documentation for %s, starting with %s.", repo, strings.Join(ev.UndocumentedFiles, ", "))
		}
		return fmt.Sprintf("Add or update the README.md for %s with clear setup and usage instructions.", repo)

	case models.MetricCommitFrequency:
		return fmt.Sprintf("Aim for more frequent, smaller commits in %s to improve code review processes.", repo)

	case models.MetricBranchingStrategy:
		return fmt.Sprintf("Implement a clear branching strategy for %s, such as GitHub Flow with a main default branch.", repo)

	default:
		return fmt.Sprintf("Review and improve the %s aspect of %s.", name.Label(), repo)
	}
}

// known reports whether v carries a real fact rather than a placeholder.
func known(v string, placeholders ...string) bool {
	if v == "" {
		return false
	}
	for _, p := range placeholders {
		if v == p {
			return false
		}
	}
	return true
}
