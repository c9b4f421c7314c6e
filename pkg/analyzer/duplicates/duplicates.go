// Package duplicates finds repeated blocks of lines across source files.
package duplicates

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

// Detector compares fixed-size line windows between every pair of files.
type Detector struct {
	config Config
}

// Option is a functional option for configuring Detector.
type Option func(*Detector)

// WithWindow sets the number of lines a match must span.
func WithWindow(lines int) Option {
	return func(d *Detector) {
		d.config.Window = lines
	}
}

// WithMaxFiles sets how many of the largest files are compared.
func WithMaxFiles(n int) Option {
	return func(d *Detector) {
		d.config.MaxFiles = n
	}
}

// WithMaxFindings sets how many findings are kept in detail.
func WithMaxFindings(n int) Option {
	return func(d *Detector) {
		d.config.MaxFindings = n
	}
}

// WithWorkers bounds the number of concurrent pair scans.
func WithWorkers(n int) Option {
	return func(d *Detector) {
		d.config.Workers = n
	}
}

// WithConfig sets all duplicate configuration from a config struct.
func WithConfig(cfg config.DuplicatesConfig) Option {
	return func(d *Detector) {
		d.config.Window = cfg.Window
		d.config.MaxFiles = cfg.MaxFiles
		d.config.MaxFindings = cfg.MaxFindings
	}
}

// New creates a detector with default config.
func New(opts ...Option) *Detector {
	d := &Detector{config: DefaultConfig()}
	for _, opt := range opts {
		opt(d)
	}
	if d.config.Window < 1 {
		d.config.Window = 1
	}
	return d
}

// preparedFile holds normalized lines and the hash of every window that
// contains at least one non-blank line.
type preparedFile struct {
	path    string
	lines   []string
	windows map[uint64][]int
	hashes  []uint64
	valid   []bool
}

// run is a maximal diagonal of matching windows between two files.
type run struct {
	startA, startB, windows int
}

// pairResult is the outcome of one pair scan.
type pairResult struct {
	a, b int
	runs []run
}

// Detect compares the selected files pairwise. The findings do not depend on
// the order of files.
func (d *Detector) Detect(ctx context.Context, files []SourceFile) (*Result, error) {
	selected := selectFiles(files, d.config.MaxFiles)

	prepared := make([]*preparedFile, len(selected))
	totalLines := 0
	for i, f := range selected {
		prepared[i] = d.prepare(f)
		totalLines += len(prepared[i].lines)
	}

	result := &Result{
		DuplicatedLines: make(map[string]*roaring.Bitmap),
		TotalLines:      totalLines,
		FilesConsidered: len(selected),
	}

	var pairs [][2]int
	for a := 0; a < len(prepared); a++ {
		for b := a + 1; b < len(prepared); b++ {
			if len(prepared[a].hashes) > 0 && len(prepared[b].hashes) > 0 {
				pairs = append(pairs, [2]int{a, b})
			}
		}
	}

	workers := d.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	// Each task writes only its own slot so results join in pair order.
	scanned := make([]pairResult, len(pairs))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(workers)
	for i, pair := range pairs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scanned[i] = pairResult{
				a:    pair[0],
				b:    pair[1],
				runs: d.scanPair(prepared[pair[0]], prepared[pair[1]]),
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	w := d.config.Window
	for _, pr := range scanned {
		fa, fb := prepared[pr.a], prepared[pr.b]
		for _, r := range pr.runs {
			length := r.windows + w - 1
			finding := models.DuplicateFinding{
				FileA:  fa.path,
				LinesA: models.LineRange{Start: r.startA + 1, End: r.startA + length},
				FileB:  fb.path,
				LinesB: models.LineRange{Start: r.startB + 1, End: r.startB + length},
			}
			result.TotalFindings++
			if len(result.Findings) < d.config.MaxFindings {
				result.Findings = append(result.Findings, finding)
			}
			markLines(result.DuplicatedLines, fa.path, finding.LinesA)
			markLines(result.DuplicatedLines, fb.path, finding.LinesB)
		}
	}

	return result, nil
}

// selectFiles keeps the maxFiles largest files (path breaks ties) and
// returns them ordered by path.
func selectFiles(files []SourceFile, maxFiles int) []SourceFile {
	selected := make([]SourceFile, len(files))
	copy(selected, files)

	if maxFiles > 0 && len(selected) > maxFiles {
		sort.Slice(selected, func(i, j int) bool {
			if len(selected[i].Content) != len(selected[j].Content) {
				return len(selected[i].Content) > len(selected[j].Content)
			}
			return selected[i].Path < selected[j].Path
		})
		selected = selected[:maxFiles]
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Path < selected[j].Path
	})
	return selected
}

func (d *Detector) prepare(f SourceFile) *preparedFile {
	text := strings.TrimSuffix(string(f.Content), "\n")
	pf := &preparedFile{
		path:    f.Path,
		windows: make(map[uint64][]int),
	}
	if text == "" {
		return pf
	}

	pf.lines = strings.Split(text, "\n")
	for i, line := range pf.lines {
		pf.lines[i] = strings.TrimRight(line, " \t\r")
	}

	w := d.config.Window
	if len(pf.lines) < w {
		return pf
	}

	n := len(pf.lines) - w + 1
	pf.hashes = make([]uint64, n)
	pf.valid = make([]bool, n)

	digest := xxhash.New()
	for i := 0; i < n; i++ {
		blank := true
		digest.Reset()
		for _, line := range pf.lines[i : i+w] {
			if line != "" {
				blank = false
			}
			_, _ = digest.WriteString(line)
			_, _ = digest.WriteString("\n")
		}
		if blank {
			continue
		}
		h := digest.Sum64()
		pf.hashes[i] = h
		pf.valid[i] = true
		pf.windows[h] = append(pf.windows[h], i)
	}
	return pf
}

// scanPair returns every maximal run of matching windows between a and b,
// ordered by start line in a, then in b.
func (d *Detector) scanPair(a, b *preparedFile) []run {
	type key struct{ i, j int }
	matched := make(map[key]bool)
	var starts []key

	for i, ok := range a.valid {
		if !ok {
			continue
		}
		for _, j := range b.windows[a.hashes[i]] {
			if !d.sameWindow(a, i, b, j) {
				continue
			}
			matched[key{i, j}] = true
			starts = append(starts, key{i, j})
		}
	}

	var runs []run
	for _, k := range starts {
		if matched[key{k.i - 1, k.j - 1}] {
			continue
		}
		length := 1
		for matched[key{k.i + length, k.j + length}] {
			length++
		}
		runs = append(runs, run{startA: k.i, startB: k.j, windows: length})
	}
	return runs
}

func (d *Detector) sameWindow(a *preparedFile, i int, b *preparedFile, j int) bool {
	for k := 0; k < d.config.Window; k++ {
		if a.lines[i+k] != b.lines[j+k] {
			return false
		}
	}
	return true
}

func markLines(bitmaps map[string]*roaring.Bitmap, path string, lines models.LineRange) {
	bm, ok := bitmaps[path]
	if !ok {
		bm = roaring.New()
		bitmaps[path] = bm
	}
	bm.AddRange(uint64(lines.Start), uint64(lines.End)+1)
}
