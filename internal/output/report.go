package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/repohealth/pkg/analyzer/health"
	"github.com/panbanda/repohealth/pkg/models"
)

// Entry is one repository's result: a report or the reason there is none.
type Entry struct {
	Repository string                   `json:"repository"`
	Report     *models.RepositoryReport `json:"report,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"errorKind,omitempty"`
}

// Reports renders health reports for one or more repositories.
type Reports struct {
	Entries []Entry
}

// NewReports converts engine outcomes, keeping their order.
func NewReports(outcomes []health.Outcome) *Reports {
	r := &Reports{Entries: make([]Entry, 0, len(outcomes))}
	for _, o := range outcomes {
		e := Entry{Repository: o.Ref.FullName(), Report: o.Report}
		if o.Report != nil {
			e.Repository = o.Report.Repository
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
			e.ErrorKind = string(health.KindOf(o.Err))
		}
		r.Entries = append(r.Entries, e)
	}
	return r
}

// Failed counts entries without a report.
func (r *Reports) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Report == nil {
			n++
		}
	}
	return n
}

// RenderData returns the bare report for a single successful repository,
// otherwise every entry.
func (r *Reports) RenderData() any {
	if len(r.Entries) == 1 && r.Entries[0].Report != nil {
		return r.Entries[0].Report
	}
	return r.Entries
}

func (r *Reports) RenderText(w io.Writer, colored bool) error {
	for i, e := range r.Entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if e.Report == nil {
			renderErrorText(w, e, colored)
			continue
		}
		if err := renderReportText(w, e.Report, colored); err != nil {
			return err
		}
	}
	if len(r.Entries) > 1 {
		fmt.Fprintln(w)
		return r.summaryTable(colored).RenderText(w, colored)
	}
	return nil
}

// summaryTable lists every repository's score with the mean of the
// successful ones as footer.
func (r *Reports) summaryTable(colored bool) *Table {
	rows := make([][]string, 0, len(r.Entries))
	total, scored := 0, 0
	for _, e := range r.Entries {
		if e.Report == nil {
			rows = append(rows, []string{e.Repository, "-", e.ErrorKind})
			continue
		}
		cell := strconv.Itoa(e.Report.Score)
		if colored {
			cell = ScoreColor(e.Report.Score, cell)
		}
		status := "ok"
		if e.Report.Diagnostics.Degraded() {
			status = "partial"
		}
		rows = append(rows, []string{e.Repository, cell, status})
		total += e.Report.Score
		scored++
	}

	var footer []string
	if scored > 0 {
		footer = []string{"Mean", strconv.Itoa((total + scored/2) / scored), ""}
	}
	return NewTable("Summary", []string{"Repository", "Score", "Status"}, rows, footer, r.Entries)
}

func renderErrorText(w io.Writer, e Entry, colored bool) {
	if colored {
		color.New(color.Bold, color.FgRed).Fprintf(w, "%s: ", e.Repository)
		fmt.Fprintln(w, e.Error)
		return
	}
	fmt.Fprintf(w, "%s: ERROR: %s\n", e.Repository, e.Error)
}

func renderReportText(w io.Writer, rep *models.RepositoryReport, colored bool) error {
	score := fmt.Sprintf("%d/100", rep.Score)
	if colored {
		color.New(color.Bold, color.FgCyan).Fprint(w, rep.Repository)
		fmt.Fprintf(w, "  Quality score: %s\n", ScoreColor(rep.Score, score))
	} else {
		fmt.Fprintf(w, "%s  Quality score: %s\n", rep.Repository, score)
	}
	fmt.Fprintln(w, strings.Repeat("=", len(rep.Repository)))
	if rep.Description != "" {
		fmt.Fprintln(w, rep.Description)
	}
	if rep.URL != "" {
		fmt.Fprintln(w, rep.URL)
	}
	fmt.Fprintln(w)

	if rep.Empty {
		fmt.Fprintln(w, "Repository is empty.")
		fmt.Fprintln(w)
	} else if err := metricTable(rep, colored).RenderText(w, colored); err != nil {
		return err
	}

	if len(rep.Suggestions) > 0 {
		heading(w, "Suggestions", colored)
		for i, s := range rep.Suggestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s)
		}
		fmt.Fprintln(w)
	}

	if !rep.Empty {
		heading(w, "Evidence", colored)
		for _, kv := range evidencePairs(rep.Evidence) {
			fmt.Fprintf(w, "  %-20s %s\n", kv[0]+":", kv[1])
		}
		fmt.Fprintln(w)
	}

	renderDiagnosticsText(w, rep.Diagnostics, colored)
	return nil
}

func renderDiagnosticsText(w io.Writer, d models.Diagnostics, colored bool) {
	if d.Branch == "" && !d.Degraded() {
		return
	}
	heading(w, "Analysis", colored)
	if d.Branch != "" {
		fmt.Fprintf(w, "  Branch: %s\n", d.Branch)
	}
	fmt.Fprintf(w, "  Files analyzed: %d of %d source files (%d in tree)\n", d.FilesAnalyzed, d.SourceFiles, d.FilesInTree)
	if d.Cached {
		fmt.Fprintln(w, "  File analysis served from cache")
	}
	for _, msg := range d.Degradations {
		if colored {
			fmt.Fprintf(w, "  %s %s\n", color.YellowString("!"), msg)
		} else {
			fmt.Fprintf(w, "  ! %s\n", msg)
		}
	}
}

func heading(w io.Writer, title string, colored bool) {
	if colored {
		color.New(color.Bold).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
}

func metricTable(rep *models.RepositoryReport, colored bool) *Table {
	rows := make([][]string, 0, len(models.MetricNames()))
	for _, name := range models.MetricNames() {
		v := rep.Metrics.Get(name)
		cell := strconv.Itoa(v)
		if colored {
			cell = ScoreColor(v, cell)
		}
		rows = append(rows, []string{name.Label(), cell})
	}
	return NewTable("Metrics", []string{"Metric", "Score"}, rows, nil, rep.Metrics)
}

func evidencePairs(e models.Evidence) [][2]string {
	pairs := [][2]string{
		{"Top issue", e.TopIssue},
		{"Oldest pull request", e.OldestPR},
		{"Complex function", e.ComplexFunction},
		{"Duplicate area", e.DuplicateArea},
	}
	if len(e.UntestedFiles) > 0 {
		pairs = append(pairs, [2]string{"Untested files", strings.Join(e.UntestedFiles, ", ")})
	}
	if len(e.UndocumentedFiles) > 0 {
		pairs = append(pairs, [2]string{"Undocumented files", strings.Join(e.UndocumentedFiles, ", ")})
	}
	return pairs
}

func (r *Reports) RenderMarkdown(w io.Writer) error {
	fmt.Fprintln(w, "# Repository Health")
	fmt.Fprintln(w)

	if len(r.Entries) > 1 {
		if err := r.summaryTable(false).RenderMarkdown(w); err != nil {
			return err
		}
	}

	for _, e := range r.Entries {
		if e.Report == nil {
			fmt.Fprintf(w, "## %s\n\n**Error:** %s\n\n", e.Repository, e.Error)
			continue
		}
		if err := renderReportMarkdown(w, e.Report); err != nil {
			return err
		}
	}
	return nil
}

func renderReportMarkdown(w io.Writer, rep *models.RepositoryReport) error {
	fmt.Fprintf(w, "## %s\n\n", rep.Repository)
	fmt.Fprintf(w, "**Quality score:** %d/100\n\n", rep.Score)
	if rep.Description != "" {
		fmt.Fprintf(w, "%s\n\n", rep.Description)
	}

	if rep.Empty {
		fmt.Fprintln(w, "_Repository is empty._")
		fmt.Fprintln(w)
	} else if err := metricTable(rep, false).RenderMarkdown(w); err != nil {
		return err
	}

	if len(rep.Suggestions) > 0 {
		fmt.Fprintln(w, "### Suggestions")
		fmt.Fprintln(w)
		for i, s := range rep.Suggestions {
			fmt.Fprintf(w, "%d. %s\n", i+1, s)
		}
		fmt.Fprintln(w)
	}

	if !rep.Empty {
		fmt.Fprintln(w, "### Evidence")
		fmt.Fprintln(w)
		for _, kv := range evidencePairs(rep.Evidence) {
			fmt.Fprintf(w, "- **%s:** %s\n", kv[0], kv[1])
		}
		fmt.Fprintln(w)
	}

	if d := rep.Diagnostics; len(d.Degradations) > 0 {
		fmt.Fprintln(w, "### Analysis notes")
		fmt.Fprintln(w)
		for _, msg := range d.Degradations {
			fmt.Fprintf(w, "- %s\n", msg)
		}
		fmt.Fprintln(w)
	}
	return nil
}
