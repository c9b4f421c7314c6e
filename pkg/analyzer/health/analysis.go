package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/repohealth/internal/fileproc"
	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/internal/scanner"
	"github.com/panbanda/repohealth/pkg/analyzer/duplicates"
	"github.com/panbanda/repohealth/pkg/analyzer/signal"
	"github.com/panbanda/repohealth/pkg/models"
)

// fileAnalysis is everything derived from file contents. It depends only
// on the tree snapshot and the analysis settings, so it is what the cache
// stores.
type fileAnalysis struct {
	Signals         []models.FileSignal       `json:"signals"`
	ComplexFunction string                    `json:"complexFunction"`
	FilesSkipped    int                       `json:"filesSkipped"`
	RateLimited     bool                      `json:"rateLimited"`
	DuplicatesRan   bool                      `json:"duplicatesRan"`
	Findings        []models.DuplicateFinding `json:"findings,omitempty"`
	TotalFindings   int                       `json:"totalFindings"`
	DuplicatedLines map[string][]uint32       `json:"duplicatedLines,omitempty"`
	TotalLines      int                       `json:"totalLines"`
	FilesConsidered int                       `json:"filesConsidered"`
	Degradations    []string                  `json:"degradations,omitempty"`
}

// complete reports whether every selected file was analyzed, which is the
// condition for caching.
func (a *fileAnalysis) complete() bool {
	return a.FilesSkipped == 0 && !a.RateLimited && len(a.Degradations) == 0
}

func (a *fileAnalysis) setDuplicates(r *duplicates.Result) {
	a.DuplicatesRan = true
	a.Findings = r.Findings
	a.TotalFindings = r.TotalFindings
	a.TotalLines = r.TotalLines
	a.FilesConsidered = r.FilesConsidered
	a.DuplicatedLines = make(map[string][]uint32, len(r.DuplicatedLines))
	for path, bm := range r.DuplicatedLines {
		a.DuplicatedLines[path] = bm.ToArray()
	}
}

// duplicates rebuilds the detector result, or nil when detection did not run.
func (a *fileAnalysis) duplicates() *duplicates.Result {
	if !a.DuplicatesRan {
		return nil
	}
	r := &duplicates.Result{
		Findings:        a.Findings,
		TotalFindings:   a.TotalFindings,
		DuplicatedLines: make(map[string]*roaring.Bitmap, len(a.DuplicatedLines)),
		TotalLines:      a.TotalLines,
		FilesConsidered: a.FilesConsidered,
	}
	for path, lines := range a.DuplicatedLines {
		r.DuplicatedLines[path] = roaring.BitmapOf(lines...)
	}
	return r
}

// selectFetch picks the source files to download: those within the size
// limit, largest first, capped at MaxFetchFiles.
func (e *Engine) selectFetch(source []models.FileEntry) []string {
	cfg := e.config.Analysis
	var paths []string
	for _, entry := range source {
		if cfg.MaxFileSize > 0 && entry.Size > cfg.MaxFileSize {
			continue
		}
		if cfg.MaxFetchFiles > 0 && len(paths) >= cfg.MaxFetchFiles {
			break
		}
		paths = append(paths, entry.Path)
	}
	return paths
}

// analyzeFiles fetches the selected files and derives signals, duplicates
// and the exemplar complex function.
func (e *Engine) analyzeFiles(ctx context.Context, ref models.RepositoryRef, branch string, c *scanner.Classification) (*fileAnalysis, error) {
	paths := e.selectFetch(c.Source)
	a := &fileAnalysis{ComplexFunction: models.ComplexityNotAvailable}
	if len(paths) == 0 {
		return a, nil
	}

	fetched := fileproc.Fetch(ctx, paths,
		func(ctx context.Context, path string) ([]byte, error) {
			return e.gateway.FileContent(ctx, ref, branch, path)
		},
		fileproc.WithWorkers(e.config.Analysis.FetchWorkers),
		fileproc.WithStop(func(err error) bool { return errors.Is(err, gateway.ErrRateLimited) }),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.FilesSkipped = fetched.Skipped
	if fetched.Halted != nil {
		a.RateLimited = true
		e.logger.Warn("Rate limited while fetching files",
			"component", "health", "repository", ref.FullName(),
			"fetched", len(fetched.Files), "skipped", fetched.Skipped)
	}
	for _, fe := range fetched.Errors.Errors {
		e.logger.Debug("File fetch failed", "component", "health", "repository", ref.FullName(), "path", fe.Path, "error", fe.Err)
	}

	files := make([]duplicates.SourceFile, 0, len(fetched.Files))
	for _, f := range fetched.Files {
		a.Signals = append(a.Signals, e.signals.Analyze(f.Path, f.Content))
		files = append(files, duplicates.SourceFile{Path: f.Path, Content: f.Content})
	}

	if len(files) > 0 {
		dups, err := e.duplicates.Detect(ctx, files)
		switch {
		case err == nil:
			a.setDuplicates(dups)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			a.Degradations = append(a.Degradations, fmt.Sprintf("duplicate detection: %v", err))
		}
	}

	a.ComplexFunction = e.complexFunction(ctx, a.Signals, fetched.Files)
	return a, nil
}

// complexFunction names the most complex function of the file with the
// most branching lines, provided it crosses the configured threshold.
func (e *Engine) complexFunction(ctx context.Context, signals []models.FileSignal, files []fileproc.File) string {
	best := -1
	for i, s := range signals {
		if s.BranchLines <= e.config.Analysis.ComplexFileBranchLines {
			continue
		}
		if best < 0 || s.BranchLines > signals[best].BranchLines ||
			(s.BranchLines == signals[best].BranchLines && s.Path < signals[best].Path) {
			best = i
		}
	}
	if best < 0 {
		return models.ComplexityNotAvailable
	}

	// Signals and files share an index.
	name := signal.MostComplexFunction(ctx, files[best].Path, files[best].Content)
	if name == "" {
		return models.UnknownFunctionName
	}
	return fmt.Sprintf("%s (%s)", name, files[best].Path)
}

// evidenceFiles lists up to limit analyzed source files without tests and
// without adequate comments, in fetch order.
func evidenceFiles(signals []models.FileSignal, threshold float64, limit int) (untested, undocumented []string) {
	for _, s := range signals {
		if !s.HasTests && !scanner.IsTestFile(s.Path) && len(untested) < limit {
			untested = append(untested, s.Path)
		}
		if !s.IsDocumented(threshold) && len(undocumented) < limit {
			undocumented = append(undocumented, s.Path)
		}
	}
	return untested, undocumented
}
