package models

// Evidence markers used when a supporting fact is missing.
const (
	NoOpenIssues              = "No open issues"
	NoOpenPullRequests        = "No open pull requests"
	Unavailable               = "Unavailable"
	ComplexityNotAvailable    = "Complexity analysis not available"
	DuplicationNotAvailable   = "Duplication analysis not available"
	UnknownFunctionName       = "Unknown"
	EmptyRepositorySuggestion = "Your repository is empty. Start by adding a README.md file to describe your project and its purpose."
)

// Evidence carries the concrete facts suggestions refer to.
type Evidence struct {
	TopIssue          string   `json:"topIssue"`
	OldestPR          string   `json:"oldestPR"`
	ComplexFunction   string   `json:"complexFunction"`
	DuplicateArea     string   `json:"duplicateArea"`
	UntestedFiles     []string `json:"untestedFiles,omitempty"`
	UndocumentedFiles []string `json:"undocumentedFiles,omitempty"`
}

// NewEvidence returns evidence with every field set to its "not found" marker.
func NewEvidence() Evidence {
	return Evidence{
		TopIssue:        NoOpenIssues,
		OldestPR:        NoOpenPullRequests,
		ComplexFunction: ComplexityNotAvailable,
		DuplicateArea:   DuplicationNotAvailable,
	}
}

// Diagnostics describes how complete the analysis behind a report was.
type Diagnostics struct {
	Branch        string   `json:"branch,omitempty"`
	TreeSHA       string   `json:"treeSha,omitempty"`
	FilesInTree   int      `json:"filesInTree"`
	SourceFiles   int      `json:"sourceFiles"`
	FilesAnalyzed int      `json:"filesAnalyzed"`
	FilesSkipped  int      `json:"filesSkipped"`
	RateLimited   bool     `json:"rateLimited"`
	Cached        bool     `json:"cached"`
	Degradations  []string `json:"degradations,omitempty"`
}

// Degraded reports whether any part of the analysis fell back to defaults.
func (d Diagnostics) Degraded() bool {
	return len(d.Degradations) > 0 || d.RateLimited || d.FilesSkipped > 0
}

// RepositoryReport is the engine's answer for one repository.
type RepositoryReport struct {
	Repository  string             `json:"repository"`
	URL         string             `json:"url,omitempty"`
	Description string             `json:"description,omitempty"`
	Language    string             `json:"language,omitempty"`
	Stars       int                `json:"stars"`
	Empty       bool               `json:"empty"`
	Metrics     MetricSet          `json:"metrics"`
	Score       int                `json:"qualityScore"`
	Suggestions []string           `json:"suggestions"`
	Evidence    Evidence           `json:"evidence"`
	Duplicates  []DuplicateFinding `json:"duplicates,omitempty"`
	Diagnostics Diagnostics        `json:"diagnostics"`
}
