package scanner

import (
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".rst":      true,
	".txt":      true,
	".adoc":     true,
	".org":      true,
}

var docNames = map[string]bool{
	"license":   true,
	"copying":   true,
	"notice":    true,
	"authors":   true,
	"changelog": true,
}

// Scanner classifies the entries of a remote tree listing.
type Scanner struct {
	config     *config.Config
	matcher    gitignore.Matcher
	extensions map[string]bool
}

// NewScanner creates a scanner from the exclude and analysis sections of cfg.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Scanner{
		config:     cfg,
		extensions: make(map[string]bool, len(cfg.Analysis.SourceExtensions)),
	}
	for _, ext := range cfg.Analysis.SourceExtensions {
		s.extensions[strings.ToLower(ext)] = true
	}
	s.loadExcludePatterns(nil)
	return s
}

// WithGitignore adds the patterns of a repository's root .gitignore.
func (s *Scanner) WithGitignore(content []byte) *Scanner {
	s.loadExcludePatterns(strings.Split(string(content), "\n"))
	return s
}

// loadExcludePatterns builds one matcher from configured patterns, excluded
// directories and any extra gitignore lines.
func (s *Scanner) loadExcludePatterns(extra []string) {
	var lines []string
	lines = append(lines, s.config.Exclude.Patterns...)
	for _, dir := range s.config.Exclude.Dirs {
		lines = append(lines, strings.TrimSuffix(dir, "/")+"/")
	}
	lines = append(lines, extra...)

	var patterns []gitignore.Pattern
	for _, line := range lines {
		line = strings.TrimRight(line, "\r ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	s.matcher = gitignore.NewMatcher(patterns)
}

// IsExcluded reports whether p, or any directory above it, matches an
// exclusion pattern.
func (s *Scanner) IsExcluded(p string, isDir bool) bool {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i := 1; i < len(parts); i++ {
		if s.matcher.Match(parts[:i], true) {
			return true
		}
	}
	return s.matcher.Match(parts, isDir)
}

// IsSource reports whether p has a recognized source extension.
func (s *Scanner) IsSource(p string) bool {
	return s.extensions[strings.ToLower(path.Ext(p))]
}

// IsDocumentation reports whether p is prose rather than code or data.
func IsDocumentation(p string) bool {
	base := strings.ToLower(path.Base(p))
	ext := path.Ext(base)
	if docExtensions[ext] {
		return true
	}
	return docNames[strings.TrimSuffix(base, ext)]
}

// IsReadme reports whether p is a README at any depth.
func IsReadme(p string) bool {
	return strings.HasPrefix(strings.ToLower(path.Base(p)), "readme")
}

// IsTestFile reports whether p looks like a test file by name or location.
func IsTestFile(p string) bool {
	base := path.Base(p)
	stem := strings.TrimSuffix(base, path.Ext(base))

	// FooTest.java, FooTests.cs, FooSpec.scala
	for _, suffix := range []string{"Test", "Tests", "Spec"} {
		if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return true
		}
	}

	stem = strings.ToLower(stem)
	for _, suffix := range []string{"_test", ".test", ".spec", "_spec"} {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	if strings.HasPrefix(stem, "test_") {
		return true
	}

	for _, dir := range strings.Split(strings.ToLower(path.Dir(p)), "/") {
		switch dir {
		case "test", "tests", "__tests__", "spec", "testdata":
			return true
		}
	}
	return false
}

// Classification summarizes a tree listing.
type Classification struct {
	// Blobs are every file in the tree, exclusions included.
	Blobs []models.FileEntry
	// Source are non-excluded source files, largest first.
	Source []models.FileEntry

	Excluded         int
	HasReadme        bool
	HasDocsDir       bool
	AllDocumentation bool
}

// Classify sorts entries into the sets the metric formulas need.
func (s *Scanner) Classify(entries []models.FileEntry) *Classification {
	c := &Classification{}
	docs := 0

	for _, e := range entries {
		if !e.IsBlob() {
			if e.IsRoot() && isDocsDir(e.Path) {
				c.HasDocsDir = true
			}
			continue
		}

		c.Blobs = append(c.Blobs, e)

		if e.IsRoot() && IsReadme(e.Path) {
			c.HasReadme = true
		}
		if top, _, nested := strings.Cut(e.Path, "/"); nested && isDocsDir(top) {
			c.HasDocsDir = true
		}
		if IsDocumentation(e.Path) {
			docs++
		}

		if s.IsExcluded(e.Path, false) {
			c.Excluded++
			continue
		}
		if s.IsSource(e.Path) {
			c.Source = append(c.Source, e)
		}
	}

	c.AllDocumentation = len(c.Blobs) > 0 && docs == len(c.Blobs)

	sort.SliceStable(c.Source, func(i, j int) bool {
		if c.Source[i].Size != c.Source[j].Size {
			return c.Source[i].Size > c.Source[j].Size
		}
		return c.Source[i].Path < c.Source[j].Path
	})

	return c
}

func isDocsDir(p string) bool {
	return strings.EqualFold(strings.Trim(p, "/"), "docs")
}
