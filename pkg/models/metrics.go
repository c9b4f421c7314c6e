package models

// MetricName identifies one entry of the fixed metric schema.
type MetricName string

const (
	MetricCodeComplexity       MetricName = "codeComplexity"
	MetricCodeDuplication      MetricName = "codeDuplication"
	MetricCodeStyleConsistency MetricName = "codeStyleConsistency"
	MetricTestCoverage         MetricName = "testCoverage"
	MetricOpenIssuesAndPRs     MetricName = "openIssuesAndPRs"
	MetricDependencyManagement MetricName = "dependencyManagement"
	MetricDocumentationQuality MetricName = "documentationQuality"
	MetricCommitFrequency      MetricName = "commitFrequency"
	MetricBranchingStrategy    MetricName = "branchingStrategy"
)

// String implements fmt.Stringer.
func (m MetricName) String() string { return string(m) }

// MetricNames lists the schema in its canonical order.
func MetricNames() []MetricName {
	return []MetricName{
		MetricCodeComplexity,
		MetricCodeDuplication,
		MetricCodeStyleConsistency,
		MetricTestCoverage,
		MetricOpenIssuesAndPRs,
		MetricDependencyManagement,
		MetricDocumentationQuality,
		MetricCommitFrequency,
		MetricBranchingStrategy,
	}
}

// Label returns a human-readable name for the metric.
func (m MetricName) Label() string {
	switch m {
	case MetricCodeComplexity:
		return "Code Complexity"
	case MetricCodeDuplication:
		return "Code Duplication"
	case MetricCodeStyleConsistency:
		return "Code Style Consistency"
	case MetricTestCoverage:
		return "Test Coverage"
	case MetricOpenIssuesAndPRs:
		return "Open Issues & PRs"
	case MetricDependencyManagement:
		return "Dependency Management"
	case MetricDocumentationQuality:
		return "Documentation Quality"
	case MetricCommitFrequency:
		return "Commit Frequency"
	case MetricBranchingStrategy:
		return "Branching Strategy"
	default:
		return string(m)
	}
}

// MetricSet is the fixed schema of normalized 0-100 metrics. Being a struct,
// every key is always present; the zero value is the empty-repository set.
type MetricSet struct {
	CodeComplexity       int `json:"codeComplexity" yaml:"codeComplexity" toon:"codeComplexity"`
	CodeDuplication      int `json:"codeDuplication" yaml:"codeDuplication" toon:"codeDuplication"`
	CodeStyleConsistency int `json:"codeStyleConsistency" yaml:"codeStyleConsistency" toon:"codeStyleConsistency"`
	TestCoverage         int `json:"testCoverage" yaml:"testCoverage" toon:"testCoverage"`
	OpenIssuesAndPRs     int `json:"openIssuesAndPRs" yaml:"openIssuesAndPRs" toon:"openIssuesAndPRs"`
	DependencyManagement int `json:"dependencyManagement" yaml:"dependencyManagement" toon:"dependencyManagement"`
	DocumentationQuality int `json:"documentationQuality" yaml:"documentationQuality" toon:"documentationQuality"`
	CommitFrequency      int `json:"commitFrequency" yaml:"commitFrequency" toon:"commitFrequency"`
	BranchingStrategy    int `json:"branchingStrategy" yaml:"branchingStrategy" toon:"branchingStrategy"`
}

// field returns a pointer to the named metric, or nil for unknown names.
func (m *MetricSet) field(name MetricName) *int {
	switch name {
	case MetricCodeComplexity:
		return &m.CodeComplexity
	case MetricCodeDuplication:
		return &m.CodeDuplication
	case MetricCodeStyleConsistency:
		return &m.CodeStyleConsistency
	case MetricTestCoverage:
		return &m.TestCoverage
	case MetricOpenIssuesAndPRs:
		return &m.OpenIssuesAndPRs
	case MetricDependencyManagement:
		return &m.DependencyManagement
	case MetricDocumentationQuality:
		return &m.DocumentationQuality
	case MetricCommitFrequency:
		return &m.CommitFrequency
	case MetricBranchingStrategy:
		return &m.BranchingStrategy
	default:
		return nil
	}
}

// Get returns the value of the named metric (0 for unknown names).
func (m MetricSet) Get(name MetricName) int {
	if p := m.field(name); p != nil {
		return *p
	}
	return 0
}

// Set assigns the named metric, clamped to [0,100]. Unknown names are ignored.
func (m *MetricSet) Set(name MetricName, value int) {
	if p := m.field(name); p != nil {
		*p = ClampPercent(value)
	}
}

// Values returns every metric in schema order.
func (m MetricSet) Values() []int {
	names := MetricNames()
	values := make([]int, len(names))
	for i, name := range names {
		values[i] = m.Get(name)
	}
	return values
}

// Clamp forces every metric into [0,100].
func (m *MetricSet) Clamp() {
	for _, name := range MetricNames() {
		m.Set(name, m.Get(name))
	}
}

// ClampPercent bounds v to [0,100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
