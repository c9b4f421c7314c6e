// Package health assembles repository health reports. It is the single
// entry point of the analysis engine: one repository reference in, one
// report or one hard error out.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/repohealth/internal/cache"
	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/internal/scanner"
	"github.com/panbanda/repohealth/pkg/analyzer/duplicates"
	"github.com/panbanda/repohealth/pkg/analyzer/score"
	"github.com/panbanda/repohealth/pkg/analyzer/signal"
	"github.com/panbanda/repohealth/pkg/analyzer/suggest"
	"github.com/panbanda/repohealth/pkg/analyzer/tree"
	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

// DefaultConcurrency bounds BuildReports.
const DefaultConcurrency = 4

// Engine builds reports through one gateway.
type Engine struct {
	gateway     gateway.Gateway
	config      *config.Config
	logger      *slog.Logger
	now         func() time.Time
	cache       *cache.Cache
	concurrency int
	onReport    func(models.RepositoryRef, error)

	walker     *tree.Walker
	signals    *signal.Analyzer
	duplicates *duplicates.Detector
	aggregator *score.Aggregator
	suggester  *suggest.Generator
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithConfig sets every tunable from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.config = cfg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the reference time source for recency metrics.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCache stores and reuses file analyses keyed by tree SHA.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithConcurrency bounds how many repositories BuildReports analyzes at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithOnReport registers a callback invoked as each BuildReports item ends.
func WithOnReport(fn func(ref models.RepositoryRef, err error)) Option {
	return func(e *Engine) {
		e.onReport = fn
	}
}

// New creates an engine reading through gw.
func New(gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway:     gw,
		config:      config.DefaultConfig(),
		logger:      slog.Default(),
		now:         time.Now,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}

	cfg := e.config
	e.walker = tree.New(gw, tree.WithCandidates(cfg.Gateway.BranchCandidates), tree.WithLogger(e.logger))
	e.signals = signal.New(signal.FromConfig(cfg.Analysis)...)
	e.duplicates = duplicates.New(duplicates.WithConfig(cfg.Duplicates))
	e.aggregator = score.New(
		score.WithConfig(cfg.Score),
		score.WithDocumentationThreshold(cfg.Analysis.DocumentationThreshold),
	)
	e.suggester = suggest.New(suggest.WithThreshold(cfg.Score.SuggestionThreshold))
	return e
}

// fingerprint identifies the settings that shape a file analysis.
func (e *Engine) fingerprint() string {
	return cache.Fingerprint(struct {
		Analysis   config.AnalysisConfig
		Duplicates config.DuplicatesConfig
		Exclude    config.ExcludeConfig
	}{e.config.Analysis, e.config.Duplicates, e.config.Exclude})
}

// BuildReport analyzes one repository. Only a failure to read metadata, a
// non-empty repository without any listable branch, or caller cancellation
// is an error; every other failure degrades the report.
func (e *Engine) BuildReport(ctx context.Context, ref models.RepositoryRef) (*models.RepositoryReport, error) {
	name := ref.FullName()
	log := e.logger.With("component", "health", "repository", name)
	log.Debug("Building report")

	meta, err := e.gateway.Metadata(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError(name, err)
	}

	report := &models.RepositoryReport{
		Repository:  name,
		URL:         meta.HTMLURL,
		Description: meta.Description,
		Language:    meta.Language,
		Stars:       meta.Stars,
		Evidence:    models.NewEvidence(),
	}
	if meta.FullName != "" {
		report.Repository = meta.FullName
	}

	if meta.Size == 0 {
		log.Info("Repository is empty")
		e.finishEmpty(report)
		return report, nil
	}

	var (
		entries  []models.FileEntry
		resolved tree.Result
		treeErr  error
		issueErr error
		pullErr  error
	)

	limit := newRateGuard(ctx)
	defer limit.release()

	var wg conc.WaitGroup
	wg.Go(func() {
		entries, resolved, treeErr = e.walker.Resolve(limit.ctx, ref, meta)
		limit.observe(treeErr)
	})
	wg.Go(func() {
		report.Evidence.TopIssue, issueErr = e.topIssue(limit.ctx, ref)
		limit.observe(issueErr)
	})
	wg.Go(func() {
		report.Evidence.OldestPR, pullErr = e.oldestPull(limit.ctx, ref)
		limit.observe(pullErr)
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diag := &report.Diagnostics
	if issueErr != nil {
		diag.Degradations = append(diag.Degradations, degradation("issues", limit.reason(issueErr)))
	}
	if pullErr != nil {
		diag.Degradations = append(diag.Degradations, degradation("pull requests", limit.reason(pullErr)))
	}

	switch treeErr = limit.reason(treeErr); {
	case treeErr == nil:
	case errors.Is(treeErr, gateway.ErrRateLimited):
		log.Warn("Rate limited while listing tree", "error", treeErr)
		e.finishRateLimited(report, meta, "tree listing rate limited; file analysis skipped")
		return report, nil
	case errors.Is(treeErr, tree.ErrNoBranch):
		return nil, &Error{Kind: KindNoBranch, Repository: report.Repository, Err: treeErr}
	default:
		return nil, newError(report.Repository, treeErr)
	}

	diag.Branch = resolved.Branch
	diag.TreeSHA = resolved.SHA
	if ref.Ref != "" && resolved.Branch != ref.Ref {
		diag.Degradations = append(diag.Degradations,
			fmt.Sprintf("branch %q not found; analyzed %q instead", ref.Ref, resolved.Branch))
	}
	if resolved.Truncated {
		diag.Degradations = append(diag.Degradations, "tree listing truncated by the remote")
	}
	if resolved.Empty {
		log.Info("Repository tree is empty", "branch", resolved.Branch)
		e.finishEmpty(report)
		return report, nil
	}
	if limit.hit() {
		log.Warn("Rate limited while reading issues or pull requests")
		e.finishRateLimited(report, meta, "rate limited; file analysis skipped")
		return report, nil
	}

	sc := scanner.NewScanner(e.config)
	ignore, err := e.rootGitignore(ctx, ref, resolved.Branch, entries)
	if err != nil {
		log.Warn("Rate limited while fetching .gitignore", "error", err)
		e.finishRateLimited(report, meta, "rate limited; file analysis skipped")
		return report, nil
	}
	if ignore != nil {
		sc.WithGitignore(ignore)
	}
	classified := sc.Classify(entries)
	diag.FilesInTree = len(classified.Blobs)
	diag.SourceFiles = len(classified.Source)

	fa, cached, err := e.fileAnalysis(ctx, ref, resolved, classified)
	if err != nil {
		return nil, err
	}

	diag.Cached = cached
	diag.FilesAnalyzed = len(fa.Signals)
	diag.FilesSkipped = fa.FilesSkipped
	if fa.RateLimited {
		diag.RateLimited = true
		diag.Degradations = append(diag.Degradations,
			fmt.Sprintf("rate limited while fetching files; %d not analyzed", fa.FilesSkipped))
	}
	diag.Degradations = append(diag.Degradations, fa.Degradations...)

	e.finish(report, meta, classified, fa)
	log.Info("Report built", "score", report.Score, "files_analyzed", diag.FilesAnalyzed, "degraded", diag.Degraded())
	return report, nil
}

// fileAnalysis returns the cached analysis for this snapshot or computes
// and stores a fresh one.
func (e *Engine) fileAnalysis(ctx context.Context, ref models.RepositoryRef, resolved tree.Result, c *scanner.Classification) (*fileAnalysis, bool, error) {
	key := cache.ReportKey(ref.FullName(), resolved.SHA)
	fp := e.fingerprint()

	var fa fileAnalysis
	if resolved.SHA != "" && e.cache.GetJSON(key, fp, &fa) {
		e.logger.Debug("Using cached file analysis", "component", "health", "repository", ref.FullName(), "tree", resolved.SHA)
		return &fa, true, nil
	}

	computed, err := e.analyzeFiles(ctx, ref, resolved.Branch, c)
	if err != nil {
		return nil, false, err
	}

	if resolved.SHA != "" && computed.complete() {
		if err := e.cache.SetJSON(key, fp, computed); err != nil {
			e.logger.Warn("Failed to write cache", "component", "health", "repository", ref.FullName(), "error", err)
		}
	}
	return computed, false, nil
}

// rootGitignore fetches the repository's root .gitignore if the tree has
// one. Only a rate limit is returned as an error; other failures skip it.
func (e *Engine) rootGitignore(ctx context.Context, ref models.RepositoryRef, branch string, entries []models.FileEntry) ([]byte, error) {
	for _, entry := range entries {
		if entry.IsBlob() && entry.Path == ".gitignore" {
			content, err := e.gateway.FileContent(ctx, ref, branch, entry.Path)
			if errors.Is(err, gateway.ErrRateLimited) {
				return nil, err
			}
			if err != nil {
				e.logger.Debug("Skipping .gitignore", "component", "health", "repository", ref.FullName(), "error", err)
				return nil, nil
			}
			return content, nil
		}
	}
	return nil, nil
}

func (e *Engine) topIssue(ctx context.Context, ref models.RepositoryRef) (string, error) {
	issues, err := e.gateway.Issues(ctx, ref, gateway.StateOpen)
	if err != nil {
		return models.Unavailable, err
	}
	if len(issues) == 0 {
		return models.NoOpenIssues, nil
	}
	return issues[0].Title, nil
}

func (e *Engine) oldestPull(ctx context.Context, ref models.RepositoryRef) (string, error) {
	pulls, err := e.gateway.Pulls(ctx, ref, gateway.StateOpen)
	if err != nil {
		return models.Unavailable, err
	}
	if len(pulls) == 0 {
		return models.NoOpenPullRequests, nil
	}
	return pulls[0].Title, nil
}

func degradation(what string, err error) string {
	if errors.Is(err, gateway.ErrUnsupported) {
		return what + " not available from this gateway"
	}
	return fmt.Sprintf("%s unavailable: %v", what, err)
}

// finishEmpty turns report into the terminal empty-repository report.
func (e *Engine) finishEmpty(report *models.RepositoryReport) {
	report.Empty = true
	report.Metrics = e.aggregator.Aggregate(score.Input{Empty: true})
	report.Score = score.QualityScore(report.Metrics)
	report.Suggestions = e.suggester.Suggest(suggest.Input{
		Repository:  report.Repository,
		Empty:       true,
		Description: report.Description,
	})
}

// finishRateLimited scores the report from metadata alone after a rate
// limit stopped the request's remaining fetches.
func (e *Engine) finishRateLimited(report *models.RepositoryReport, meta *gateway.Metadata, note string) {
	report.Diagnostics.RateLimited = true
	report.Diagnostics.Degradations = append(report.Diagnostics.Degradations, note)
	e.finish(report, meta, nil, nil)
}

// finish computes metrics, score, evidence and suggestions. c and fa are
// nil when the tree could not be read.
func (e *Engine) finish(report *models.RepositoryReport, meta *gateway.Metadata, c *scanner.Classification, fa *fileAnalysis) {
	in := score.Input{
		SizeKB:         meta.Size,
		Language:       meta.Language,
		OpenIssueCount: meta.OpenIssueCount,
		PushedAt:       meta.PushedAt,
		HasWiki:        meta.HasWiki,
		DefaultBranch:  meta.DefaultBranch,
		Now:            e.now(),
	}

	if c != nil {
		in.Blobs = len(c.Blobs)
		in.SourceFiles = len(c.Source)
		in.HasReadme = c.HasReadme
		in.HasDocsDir = c.HasDocsDir
		in.AllDocumentation = c.AllDocumentation
	} else {
		// Unknown tree: assume source exists so fallbacks apply.
		in.Blobs = e.config.Score.SmallRepoFiles
		in.SourceFiles = 1
	}

	if fa != nil {
		in.Signals = fa.Signals
		in.Duplicates = fa.duplicates()

		report.Evidence.ComplexFunction = fa.ComplexFunction
		if area := in.Duplicates.Area(); area != "" {
			report.Evidence.DuplicateArea = area
		}
		report.Duplicates = fa.Findings
		report.Evidence.UntestedFiles, report.Evidence.UndocumentedFiles = evidenceFiles(
			fa.Signals, e.config.Analysis.DocumentationThreshold, e.config.Analysis.EvidenceFiles)
	}

	report.Metrics = e.aggregator.Aggregate(in)
	report.Score = score.QualityScore(report.Metrics)
	report.Suggestions = e.suggester.Suggest(suggest.Input{
		Repository:  report.Repository,
		Description: report.Description,
		Metrics:     report.Metrics,
		Evidence:    report.Evidence,
	})
}

// Outcome is one BuildReports result.
type Outcome struct {
	Ref    models.RepositoryRef
	Report *models.RepositoryReport
	Err    error
}

// BuildReports analyzes refs concurrently and returns one outcome per ref
// in input order. A failure for one repository does not affect the others.
func (e *Engine) BuildReports(ctx context.Context, refs []models.RepositoryRef) []Outcome {
	outcomes := make([]Outcome, len(refs))

	workers := e.concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i, ref := range refs {
		p.Go(func() {
			report, err := e.BuildReport(ctx, ref)
			outcomes[i] = Outcome{Ref: ref, Report: report, Err: err}
			if e.onReport != nil {
				e.onReport(ref, err)
			}
		})
	}
	p.Wait()

	return outcomes
}
