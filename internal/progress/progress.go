// Package progress shows how many repositories are done on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker counts finished repositories. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	out    io.Writer
	failed []string
}

// NewTracker creates a progress bar for total repositories.
func NewTracker(label string, total int) *Tracker {
	return newTracker(os.Stderr, label, total)
}

func newTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, out: w}
}

// Done records one finished repository. A non-nil err is remembered and
// printed by Finish.
func (t *Tracker) Done(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.failed = append(t.failed, fmt.Sprintf("%s: %v", name, err))
	}
	_ = t.bar.Add(1)
}

// Failed returns the failures recorded so far.
func (t *Tracker) Failed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.failed...)
}

// Finish clears the bar and lists failures.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	for _, f := range t.failed {
		fmt.Fprintf(t.out, "  failed %s\n", f)
	}
}
