package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/repohealth/pkg/models"
)

func healthy() models.MetricSet {
	var m models.MetricSet
	for _, name := range models.MetricNames() {
		m.Set(name, 90)
	}
	return m
}

func input(m models.MetricSet) Input {
	return Input{
		Repository:  "acme/widgets",
		Description: "Widgets for everyone",
		Metrics:     m,
		Evidence:    models.NewEvidence(),
	}
}

func TestSuggest_Empty(t *testing.T) {
	in := input(models.MetricSet{})
	in.Empty = true
	in.Description = ""

	got := New().Suggest(in)
	assert.Equal(t, []string{models.EmptyRepositorySuggestion}, got)
}

func TestSuggest_Healthy(t *testing.T) {
	assert.Empty(t, New().Suggest(input(healthy())))
}

func TestSuggest_OneSuggestionPerLowMetric(t *testing.T) {
	m := healthy()
	m.TestCoverage = 0
	m.CommitFrequency = 40
	m.CodeDuplication = 40
	m.BranchingStrategy = 69

	got := New().Suggest(input(m))
	require.Len(t, got, 4)
	// Worst first; equal values keep schema order.
	assert.Contains(t, got[0], "test coverage")
	assert.Contains(t, got[1], "duplication")
	assert.Contains(t, got[2], "commits")
	assert.Contains(t, got[3], "branching strategy")
}

func TestSuggest_ThresholdIsExclusive(t *testing.T) {
	m := healthy()
	m.CodeComplexity = 70
	assert.Empty(t, New().Suggest(input(m)))

	assert.Len(t, New(WithThreshold(71)).Suggest(input(m)), 1)
}

func TestSuggest_Monotonic(t *testing.T) {
	low := models.MetricSet{}
	for _, name := range models.MetricNames() {
		low.Set(name, 10)
	}
	g := New()
	base := g.Suggest(input(low))
	require.Len(t, base, len(models.MetricNames()))

	for i, name := range models.MetricNames() {
		raised := low
		raised.Set(name, 95)
		got := g.Suggest(input(raised))

		want := append(append([]string{}, base[:i]...), base[i+1:]...)
		assert.Equal(t, want, got, "raising %s should remove only its suggestion", name)
	}
}

func TestSuggest_CitesEvidence(t *testing.T) {
	m := healthy()
	m.CodeComplexity = 10
	m.CodeDuplication = 20
	m.TestCoverage = 30
	m.OpenIssuesAndPRs = 40
	m.DocumentationQuality = 50

	in := input(m)
	in.Evidence = models.Evidence{
		TopIssue:          "Crash on startup",
		OldestPR:          "Add retries",
		ComplexFunction:   "parseConfig",
		DuplicateArea:     "a.go: Lines 1-5 (similar to b.go: Lines 3-7)",
		UntestedFiles:     []string{"server.go", "client.go"},
		UndocumentedFiles: []string{"util.go"},
	}

	got := New().Suggest(in)
	require.Len(t, got, 5)
	assert.Contains(t, got[0], "parseConfig")
	assert.Contains(t, got[1], "a.go: Lines 1-5")
	assert.Contains(t, got[2], "server.go, client.go")
	assert.Contains(t, got[3], `"Crash on startup"`)
	assert.Contains(t, got[3], `"Add retries"`)
	assert.Contains(t, got[4], "util.go")
}

func TestSuggest_PlaceholdersAreNotCited(t *testing.T) {
	m := healthy()
	m.CodeComplexity = 0
	m.CodeDuplication = 0
	m.OpenIssuesAndPRs = 0

	in := input(m)
	in.Evidence.TopIssue = models.Unavailable
	in.Evidence.ComplexFunction = models.UnknownFunctionName

	for _, s := range New().Suggest(in) {
		assert.NotContains(t, s, models.Unavailable)
		assert.NotContains(t, s, models.UnknownFunctionName)
		assert.NotContains(t, s, models.DuplicationNotAvailable)
		assert.NotContains(t, s, models.NoOpenPullRequests)
	}
}

func TestSuggest_OnlyOldestPR(t *testing.T) {
	m := healthy()
	m.OpenIssuesAndPRs = 0
	in := input(m)
	in.Evidence.OldestPR = "Bump deps"

	got := New().Suggest(in)
	require.Len(t, got, 1)
	assert.Equal(t, `Review and provide feedback on the oldest PR: "Bump deps".`, got[0])
}

func TestSuggest_MissingDescription(t *testing.T) {
	m := healthy()
	m.CommitFrequency = 20
	in := input(m)
	in.Description = "  "

	got := New().Suggest(in)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "commits")
	assert.Contains(t, got[1], "Add a description to acme/widgets")
}
