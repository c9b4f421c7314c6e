// Package signal derives per-file quality signals from source content.
package signal

import (
	"context"
	"math"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
	"github.com/panbanda/repohealth/pkg/parser"
)

// hashCommentExtensions use # for line comments and triple quotes for
// docstrings.
var hashCommentExtensions = map[string]bool{
	".py":    true,
	".rb":    true,
	".sh":    true,
	".bash":  true,
	".pl":    true,
	".r":     true,
	".yaml":  true,
	".yml":   true,
	".toml":  true,
	".ps1":   true,
	".cmake": true,
}

var languageNames = map[string]string{
	".go":    "Go",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".cjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".rb":    "Ruby",
	".java":  "Java",
	".kt":    "Kotlin",
	".kts":   "Kotlin",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".cxx":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".sh":    "Shell",
	".bash":  "Shell",
}

// Analyzer extracts FileSignals. It holds no per-file state and is safe for
// concurrent use.
type Analyzer struct {
	extensions  map[string]bool
	branchRe    *regexp.Regexp
	testRe      *regexp.Regexp
	penalty     float64
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithSourceExtensions sets the recognized source extensions.
func WithSourceExtensions(exts []string) Option {
	return func(a *Analyzer) {
		a.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			a.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithComplexityKeywords sets the words that mark a branching line.
func WithComplexityKeywords(words []string) Option {
	return func(a *Analyzer) {
		a.branchRe = keywordPattern(words)
	}
}

// WithTestMarkers sets the snippets that mark test code. A marker that
// starts with a letter only matches at a word start, so "it(" does not
// match "Wait(".
func WithTestMarkers(markers []string) Option {
	return func(a *Analyzer) {
		a.testRe = markerPattern(markers)
	}
}

// WithComplexityPenalty sets how hard branch density is punished.
func WithComplexityPenalty(p float64) Option {
	return func(a *Analyzer) {
		a.penalty = p
	}
}

// FromConfig returns the options matching cfg.Analysis.
func FromConfig(cfg config.AnalysisConfig) []Option {
	return []Option{
		WithSourceExtensions(cfg.SourceExtensions),
		WithComplexityKeywords(cfg.ComplexityKeywords),
		WithTestMarkers(cfg.TestMarkers),
		WithComplexityPenalty(cfg.ComplexityPenalty),
	}
}

// New creates an analyzer with the default settings, then applies opts.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range FromConfig(config.DefaultConfig().Analysis) {
		opt(a)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = New()

// Analyze extracts signals with the default settings.
func Analyze(p string, content []byte) models.FileSignal {
	return defaultAnalyzer.Analyze(p, content)
}

func markerPattern(markers []string) *regexp.Regexp {
	var alts []string
	for _, m := range markers {
		if m == "" {
			continue
		}
		q := regexp.QuoteMeta(m)
		if r := rune(m[0]); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			q = `\b` + q
		}
		alts = append(alts, q)
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

// IsSource reports whether p has a default source extension.
func IsSource(p string) bool {
	return defaultAnalyzer.IsSource(p)
}

func keywordPattern(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// IsSource reports whether p has a recognized source extension.
func (a *Analyzer) IsSource(p string) bool {
	return a.extensions[strings.ToLower(path.Ext(p))]
}

// Analyze computes every signal for one file in a single pass.
func (a *Analyzer) Analyze(p string, content []byte) models.FileSignal {
	ext := strings.ToLower(path.Ext(p))
	sig := models.FileSignal{
		Path:     p,
		Language: languageNames[ext],
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		sig.ComplexityScore = 100
		return sig
	}

	hashComments := hashCommentExtensions[ext]
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	sig.Lines = len(lines)

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if a.branchRe != nil && a.branchRe.MatchString(line) {
			sig.BranchLines++
		}
		if isCommentLine(line, hashComments) {
			sig.CommentLines++
		}
		switch {
		case strings.HasPrefix(line, "\t"):
			sig.TabIndented++
		case strings.HasPrefix(line, " "):
			sig.SpaceIndented++
		}
	}

	sig.ComplexityScore = ComplexityScore(sig.BranchLines, sig.Lines, a.penalty)
	sig.DocumentationRatio = float64(sig.CommentLines) / float64(sig.Lines)

	sig.HasTests = a.testRe != nil && a.testRe.MatchString(text)

	return sig
}

// ComplexityScore maps branch density to 0-100 where 100 is simplest.
//
// score = 100 - (branchLines/lines) * 100 * penalty
func ComplexityScore(branchLines, lines int, penalty float64) int {
	if lines <= 0 {
		return 100
	}
	density := float64(branchLines) / float64(lines)
	score := 100 - density*100*penalty
	return models.ClampPercent(int(math.Round(score)))
}

func isCommentLine(line string, hashComments bool) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	for _, prefix := range []string{"//", "/*", "*", "*/"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	if hashComments {
		for _, prefix := range []string{"#", `"""`, "'''"} {
			if strings.HasPrefix(t, prefix) {
				return true
			}
		}
	}
	return false
}

// MostComplexFunction returns the name of the function in content with the
// most decision points, or "" when the language cannot be parsed or no named
// function exists. Ties go to the earlier function.
func MostComplexFunction(ctx context.Context, p string, content []byte) string {
	if len(content) == 0 {
		return ""
	}
	fns, err := parser.Functions(ctx, p, content)
	if err != nil {
		return ""
	}
	if fn, ok := parser.MostComplex(fns); ok {
		return fn.Name
	}
	return ""
}
