package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for repohealth.
type Config struct {
	// Remote access settings
	Gateway GatewayConfig `koanf:"gateway" toml:"gateway" json:"gateway"`

	// Per-file signal extraction
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" json:"analysis"`

	// Duplicate detection
	Duplicates DuplicatesConfig `koanf:"duplicates" toml:"duplicates" json:"duplicates"`

	// Metric formulas and suggestion threshold
	Score ScoreConfig `koanf:"score" toml:"score" json:"score"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude" json:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" json:"output"`
}

// GatewayConfig selects and tunes the remote repository client.
type GatewayConfig struct {
	Kind             string   `koanf:"kind" toml:"kind" json:"kind"` // github, git
	BaseURL          string   `koanf:"base_url" toml:"base_url" json:"base_url"`
	CloneURL         string   `koanf:"clone_url" toml:"clone_url" json:"clone_url"`
	Timeout          int      `koanf:"timeout" toml:"timeout" json:"timeout"` // seconds
	RetryAttempts    int      `koanf:"retry_attempts" toml:"retry_attempts" json:"retry_attempts"`
	BranchCandidates []string `koanf:"branch_candidates" toml:"branch_candidates" json:"branch_candidates"`
}

// AnalysisConfig controls how file contents become signals.
type AnalysisConfig struct {
	SourceExtensions       []string `koanf:"source_extensions" toml:"source_extensions" json:"source_extensions"`
	ComplexityKeywords     []string `koanf:"complexity_keywords" toml:"complexity_keywords" json:"complexity_keywords"`
	TestMarkers            []string `koanf:"test_markers" toml:"test_markers" json:"test_markers"`
	ComplexityPenalty      float64  `koanf:"complexity_penalty" toml:"complexity_penalty" json:"complexity_penalty"`
	DocumentationThreshold float64  `koanf:"documentation_threshold" toml:"documentation_threshold" json:"documentation_threshold"`
	ComplexFileBranchLines int      `koanf:"complex_file_branch_lines" toml:"complex_file_branch_lines" json:"complex_file_branch_lines"`
	FetchWorkers           int      `koanf:"fetch_workers" toml:"fetch_workers" json:"fetch_workers"`
	MaxFetchFiles          int      `koanf:"max_fetch_files" toml:"max_fetch_files" json:"max_fetch_files"`
	MaxFileSize            int64    `koanf:"max_file_size" toml:"max_file_size" json:"max_file_size"` // bytes
	EvidenceFiles          int      `koanf:"evidence_files" toml:"evidence_files" json:"evidence_files"`
}

// DuplicatesConfig tunes the duplicate detector.
type DuplicatesConfig struct {
	Window      int `koanf:"window" toml:"window" json:"window"`
	MaxFiles    int `koanf:"max_files" toml:"max_files" json:"max_files"`
	MaxFindings int `koanf:"max_findings" toml:"max_findings" json:"max_findings"`
}

// ScoreConfig holds metric constants and the suggestion threshold.
type ScoreConfig struct {
	SuggestionThreshold int     `koanf:"suggestion_threshold" toml:"suggestion_threshold" json:"suggestion_threshold"`
	SmallRepoFiles      int     `koanf:"small_repo_files" toml:"small_repo_files" json:"small_repo_files"`
	IssuePenalty        int     `koanf:"issue_penalty" toml:"issue_penalty" json:"issue_penalty"`
	DuplicationFallback int     `koanf:"duplication_fallback" toml:"duplication_fallback" json:"duplication_fallback"`
	StyleFallback       int     `koanf:"style_fallback" toml:"style_fallback" json:"style_fallback"`
	MainBranchScore     int     `koanf:"main_branch_score" toml:"main_branch_score" json:"main_branch_score"`
	OtherBranchScore    int     `koanf:"other_branch_score" toml:"other_branch_score" json:"other_branch_score"`
	TestedRatio         float64 `koanf:"tested_ratio" toml:"tested_ratio" json:"tested_ratio"`
	PartialTestScore    int     `koanf:"partial_test_score" toml:"partial_test_score" json:"partial_test_score"`
}

// ExcludeConfig defines file exclusion patterns (gitignore syntax).
type ExcludeConfig struct {
	Patterns []string `koanf:"patterns" toml:"patterns" json:"patterns"`
	Dirs     []string `koanf:"dirs" toml:"dirs" json:"dirs"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" json:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" json:"format"` // text, json, markdown, toon, yaml
	Color  bool   `koanf:"color" toml:"color" json:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Kind:             "github",
			Timeout:          30,
			RetryAttempts:    3,
			BranchCandidates: []string{"main", "master", "develop"},
		},
		Analysis: AnalysisConfig{
			SourceExtensions: []string{
				".go",
				".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx",
				".py",
				".rb",
				".java", ".kt", ".kts",
				".rs",
				".c", ".h", ".cc", ".cpp", ".cxx", ".hpp",
				".cs",
				".php",
				".swift",
				".scala",
				".sh", ".bash",
			},
			ComplexityKeywords: []string{
				"if", "for", "while", "switch", "case", "catch", "elif", "else", "foreach", "until",
			},
			TestMarkers: []string{
				"test(", "it(", "describe(", "func Test", "def test_", "@Test", "#[test]",
			},
			ComplexityPenalty:      2.0,
			DocumentationThreshold: 0.10,
			ComplexFileBranchLines: 10,
			FetchWorkers:           8,
			MaxFetchFiles:          200,
			MaxFileSize:            512 * 1024,
			EvidenceFiles:          5,
		},
		Duplicates: DuplicatesConfig{
			Window:      5,
			MaxFiles:    50,
			MaxFindings: 3,
		},
		Score: ScoreConfig{
			SuggestionThreshold: 70,
			SmallRepoFiles:      5,
			IssuePenalty:        2,
			DuplicationFallback: 80,
			StyleFallback:       80,
			MainBranchScore:     80,
			OtherBranchScore:    50,
			TestedRatio:         0.30,
			PartialTestScore:    70,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
				"*.lock",
				"*.sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				"dist",
				"build",
				"__pycache__",
			},
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".repohealth/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// configNames are searched in order inside each search directory.
var configNames = []string{
	"repohealth.toml",
	"repohealth.yaml",
	"repohealth.yml",
	"repohealth.json",
	".repohealth.toml",
	".repohealth.yaml",
	".repohealth.yml",
	".repohealth.json",
}

var searchDirs = []string{".", ".repohealth"}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// loadKoanf reads a file into a fresh koanf instance.
func loadKoanf(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return k, nil
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k, err := loadKoanf(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// FindConfigFile returns the first config file found in the standard
// locations, or "" when none exists.
func FindConfigFile() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := FindConfigFile(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// LoadResult is a loaded config plus the file it came from ("" for defaults).
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads an explicit file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig loads configuration and reports its source. Unlike
// LoadOrDefault, a broken config file is an error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	path := o.path
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// Validate checks value ranges that the loaders cannot enforce.
func (c *Config) Validate() error {
	var errs []error

	switch c.Gateway.Kind {
	case "github", "git":
	default:
		errs = append(errs, fmt.Errorf("gateway.kind must be github or git, got %q", c.Gateway.Kind))
	}
	if c.Gateway.Timeout < 0 {
		errs = append(errs, errors.New("gateway.timeout must not be negative"))
	}
	if c.Gateway.RetryAttempts < 1 {
		errs = append(errs, errors.New("gateway.retry_attempts must be at least 1"))
	}

	if c.Analysis.ComplexityPenalty < 0 {
		errs = append(errs, errors.New("analysis.complexity_penalty must not be negative"))
	}
	if c.Analysis.DocumentationThreshold < 0 || c.Analysis.DocumentationThreshold > 1 {
		errs = append(errs, errors.New("analysis.documentation_threshold must be between 0 and 1"))
	}
	if c.Analysis.FetchWorkers < 1 {
		errs = append(errs, errors.New("analysis.fetch_workers must be at least 1"))
	}
	if c.Analysis.MaxFetchFiles < 0 {
		errs = append(errs, errors.New("analysis.max_fetch_files must not be negative"))
	}

	if c.Duplicates.Window < 1 {
		errs = append(errs, errors.New("duplicates.window must be at least 1"))
	}
	if c.Duplicates.MaxFiles < 0 || c.Duplicates.MaxFindings < 0 {
		errs = append(errs, errors.New("duplicates limits must not be negative"))
	}

	if c.Score.SuggestionThreshold < 0 || c.Score.SuggestionThreshold > 100 {
		errs = append(errs, errors.New("score.suggestion_threshold must be between 0 and 100"))
	}
	if c.Score.TestedRatio < 0 || c.Score.TestedRatio > 1 {
		errs = append(errs, errors.New("score.tested_ratio must be between 0 and 1"))
	}

	switch c.Output.Format {
	case "text", "json", "markdown", "toon", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not supported", c.Output.Format))
	}

	return errors.Join(errs...)
}
