package score

import "math"

// =============================================================================
// METRIC FORMULAS
// =============================================================================
//
// Each metric is normalized to a 0-100 score where higher is better. Every
// formula:
//
// 1. Never panics and never divides by zero
// 2. Falls back to a documented default when its input is missing
// 3. Takes its tunable constants from config.ScoreConfig
// =============================================================================

// -----------------------------------------------------------------------------
// Complexity
// -----------------------------------------------------------------------------
//
// Mean of the per-file branch density scores. With no analyzed files the
// repository size stands in: 100 - size_kb/100.
// -----------------------------------------------------------------------------

// CodeComplexity returns the codeComplexity metric.
func CodeComplexity(in Input) int {
	if in.SourceFiles == 0 {
		return 100
	}
	if in.Analyzed() {
		scores := make([]float64, len(in.Signals))
		for i, s := range in.Signals {
			scores[i] = float64(s.ComplexityScore)
		}
		return roundClamp(Mean(scores))
	}
	return roundClamp(100 - float64(in.SizeKB)/100)
}

// -----------------------------------------------------------------------------
// Duplication Normalization
// -----------------------------------------------------------------------------
//
// Uses a NON-LINEAR scale over the duplicated line ratio.
//
// Benchmarks:
// - 0-3%: 100-95 - minimal duplication
// - 3-5%: 95-90 - acceptable for most projects
// - 5-10%: 90-80 - consider refactoring
// - 10-20%: 80-60 - significant maintenance risk
// - >20%: 60-0 - copy-paste is systemic
//
// The curve is piecewise linear with increasing slope at higher ratios.
// -----------------------------------------------------------------------------

// NormalizeDuplication converts duplication ratio to 0-100 score.
func NormalizeDuplication(ratio float64) int {
	var score float64
	switch {
	case ratio <= 0.03:
		score = 100 - (ratio * 166.7)
	case ratio <= 0.05:
		score = 95 - ((ratio - 0.03) * 250)
	case ratio <= 0.10:
		score = 90 - ((ratio - 0.05) * 200)
	case ratio <= 0.20:
		score = 80 - ((ratio - 0.10) * 200)
	default:
		score = 60 - ((ratio - 0.20) * 150)
	}
	return clamp(int(math.Round(score)), 0, 100)
}

// CodeDuplication returns the codeDuplication metric.
func CodeDuplication(in Input, fallback int) int {
	switch {
	case in.SourceFiles == 0:
		return 100
	case in.Duplicates != nil:
		return NormalizeDuplication(in.Duplicates.Ratio())
	default:
		return clamp(fallback, 0, 100)
	}
}

// -----------------------------------------------------------------------------
// Style Consistency
// -----------------------------------------------------------------------------
//
// Share of indented lines that use the dominant style (tabs or spaces).
// -----------------------------------------------------------------------------

// CodeStyleConsistency returns the codeStyleConsistency metric.
func CodeStyleConsistency(in Input, fallback int) int {
	if !in.Analyzed() {
		if in.Language != "" {
			return clamp(fallback, 0, 100)
		}
		return 0
	}

	tabs, spaces := 0, 0
	for _, s := range in.Signals {
		tabs += s.TabIndented
		spaces += s.SpaceIndented
	}
	total := tabs + spaces
	if total == 0 {
		return 100
	}
	return roundClamp(100 * float64(max(tabs, spaces)) / float64(total))
}

// -----------------------------------------------------------------------------
// Test Presence
// -----------------------------------------------------------------------------
//
// Not applicable (100) for tiny or documentation-only repositories.
// Otherwise a step function of the share of analyzed files with tests.
// -----------------------------------------------------------------------------

// TestCoverage returns the testCoverage metric.
func TestCoverage(in Input, smallRepoFiles int, testedRatio float64, partial int) int {
	if in.Blobs < smallRepoFiles || in.AllDocumentation || in.SourceFiles == 0 {
		return 100
	}
	if !in.Analyzed() {
		return 0
	}

	tested := 0
	for _, s := range in.Signals {
		if s.HasTests {
			tested++
		}
	}
	ratio := float64(tested) / float64(len(in.Signals))
	switch {
	case ratio >= testedRatio:
		return 100
	case ratio > 0:
		return clamp(partial, 0, 100)
	default:
		return 0
	}
}

// OpenIssuesAndPRs returns 100 minus penalty per open issue, saturating at 0.
func OpenIssuesAndPRs(openIssues, penalty int) int {
	return clamp(100-penalty*openIssues, 0, 100)
}

// DependencyManagement uses push freshness: 100 minus days since the last
// push. Unknown push time scores 0.
func DependencyManagement(in Input) int {
	days := in.DaysSincePush()
	if days < 0 {
		return 0
	}
	return clamp(100-days, 0, 100)
}

// DocumentationQuality awards 50 for a root README and 50 for any docs
// signal: a wiki, a root docs directory, or a comment ratio above threshold.
func DocumentationQuality(in Input, threshold float64) int {
	score := 0
	if in.HasReadme {
		score += 50
	}
	if in.HasWiki || in.HasDocsDir || (in.Analyzed() && in.CommentRatio() > threshold) {
		score += 50
	}
	return score
}

// CommitFrequency steps down with push age.
func CommitFrequency(in Input) int {
	days := in.DaysSincePush()
	switch {
	case days < 0:
		return 0
	case days <= 7:
		return 100
	case days <= 30:
		return 80
	case days <= 90:
		return 60
	case days <= 365:
		return 40
	default:
		return 20
	}
}

// BranchingStrategy rewards the conventional default branch names.
func BranchingStrategy(defaultBranch string, mainScore, otherScore int) int {
	switch defaultBranch {
	case "main", "master":
		return clamp(mainScore, 0, 100)
	default:
		return clamp(otherScore, 0, 100)
	}
}

func roundClamp(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(int(math.Round(v)), 0, 100)
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
