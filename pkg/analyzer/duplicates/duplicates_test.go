package duplicates

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/panbanda/repohealth/pkg/models"
)

const block = `func total(items []Item) int {
	sum := 0
	for _, it := range items {
		sum += it.Price
	}
	return sum
}
`

func file(path, content string) SourceFile {
	return SourceFile{Path: path, Content: []byte(content)}
}

func TestNew(t *testing.T) {
	d := New()
	if d.config.Window != 5 {
		t.Errorf("Window = %d, want 5", d.config.Window)
	}
	if d.config.MaxFiles != 50 {
		t.Errorf("MaxFiles = %d, want 50", d.config.MaxFiles)
	}
	if d.config.MaxFindings != 3 {
		t.Errorf("MaxFindings = %d, want 3", d.config.MaxFindings)
	}
}

func TestNewWithOptions(t *testing.T) {
	d := New(WithWindow(0), WithMaxFiles(10), WithMaxFindings(1), WithWorkers(2))
	if d.config.Window != 1 {
		t.Errorf("Window = %d, want clamp to 1", d.config.Window)
	}
	if d.config.MaxFiles != 10 || d.config.MaxFindings != 1 || d.config.Workers != 2 {
		t.Errorf("config = %+v", d.config)
	}
}

func TestDetect_IdenticalFiveLineBlock(t *testing.T) {
	five := "alpha()\nbeta()\ngamma()\ndelta()\nepsilon()\n"
	res, err := New().Detect(context.Background(), []SourceFile{
		file("a.go", five),
		file("b.go", five),
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.TotalFindings != 1 {
		t.Fatalf("TotalFindings = %d, want 1", res.TotalFindings)
	}
	want := models.DuplicateFinding{
		FileA:  "a.go",
		LinesA: models.LineRange{Start: 1, End: 5},
		FileB:  "b.go",
		LinesB: models.LineRange{Start: 1, End: 5},
	}
	if res.Findings[0] != want {
		t.Errorf("finding = %+v, want %+v", res.Findings[0], want)
	}
	if got := res.DuplicatedLineCount(); got != 10 {
		t.Errorf("DuplicatedLineCount = %d, want 10", got)
	}
	if res.Ratio() != 1 {
		t.Errorf("Ratio = %f, want 1", res.Ratio())
	}
}

func TestDetect_RunsMergeIntoOneFinding(t *testing.T) {
	a := "package a\n// total sums prices.\n" + block
	b := "package b\n\nimport \"fmt\"\n\n" + block + "\nfunc other() {}\n"

	res, err := New().Detect(context.Background(), []SourceFile{file("b.go", b), file("a.go", a)})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFindings != 1 {
		t.Fatalf("TotalFindings = %d, want 1: %+v", res.TotalFindings, res.Findings)
	}

	f := res.Findings[0]
	if f.FileA != "a.go" || f.FileB != "b.go" {
		t.Errorf("files = %s, %s", f.FileA, f.FileB)
	}
	if f.LinesA != (models.LineRange{Start: 3, End: 9}) {
		t.Errorf("LinesA = %s, want 3-9", f.LinesA)
	}
	if f.LinesB != (models.LineRange{Start: 5, End: 11}) {
		t.Errorf("LinesB = %s, want 5-11", f.LinesB)
	}
}

func TestDetect_TrailingWhitespaceIgnored(t *testing.T) {
	padded := strings.ReplaceAll(block, "\n", "  \r\n")
	res, err := New().Detect(context.Background(), []SourceFile{file("a.go", block), file("b.go", padded)})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFindings != 1 {
		t.Errorf("TotalFindings = %d, want 1", res.TotalFindings)
	}
}

func TestDetect_BlankWindowsIgnored(t *testing.T) {
	blank := strings.Repeat("\n", 12) + "x\n"
	res, err := New().Detect(context.Background(), []SourceFile{file("a.go", blank), file("b.go", blank)})
	if err != nil {
		t.Fatal(err)
	}
	// Only the windows ending in "x" contain content, and they match once.
	if res.TotalFindings != 1 {
		t.Fatalf("TotalFindings = %d, want 1", res.TotalFindings)
	}
	if got := res.Findings[0].LinesA; got.Start != 9 || got.End != 13 {
		t.Errorf("LinesA = %s, want 9-13", got)
	}
}

func TestDetect_NoDuplicates(t *testing.T) {
	res, err := New().Detect(context.Background(), []SourceFile{
		file("a.go", "one\ntwo\nthree\nfour\nfive\n"),
		file("b.go", "six\nseven\neight\nnine\nten\n"),
		file("short.go", "one\n"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFindings != 0 || len(res.Findings) != 0 {
		t.Errorf("findings = %+v", res.Findings)
	}
	if res.TotalLines != 11 {
		t.Errorf("TotalLines = %d, want 11", res.TotalLines)
	}
	if res.Ratio() != 0 {
		t.Errorf("Ratio = %f, want 0", res.Ratio())
	}
	if res.Area() != "" {
		t.Errorf("Area = %q, want empty", res.Area())
	}
}

func TestDetect_OrderIndependent(t *testing.T) {
	var files []SourceFile
	for i := 0; i < 6; i++ {
		files = append(files, file(fmt.Sprintf("pkg%d/file.go", i), fmt.Sprintf("package p%d\n\n%s", i, block)))
	}

	forward, err := New().Detect(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}

	reversed := make([]SourceFile, len(files))
	for i, f := range files {
		reversed[len(files)-1-i] = f
	}
	backward, err := New().Detect(context.Background(), reversed)
	if err != nil {
		t.Fatal(err)
	}

	if forward.TotalFindings != 15 {
		t.Errorf("TotalFindings = %d, want 15 (one per pair)", forward.TotalFindings)
	}
	if !reflect.DeepEqual(forward.Findings, backward.Findings) {
		t.Errorf("findings differ:\n%+v\n%+v", forward.Findings, backward.Findings)
	}
	if len(forward.Findings) != 3 {
		t.Errorf("len(Findings) = %d, want MaxFindings 3", len(forward.Findings))
	}
	if forward.Area() != forward.Findings[0].String() {
		t.Errorf("Area = %q", forward.Area())
	}
}

func TestDetect_MaxFilesKeepsLargest(t *testing.T) {
	big := strings.Repeat("filler line\n", 20) + block
	res, err := New(WithMaxFiles(2)).Detect(context.Background(), []SourceFile{
		file("small.go", block),
		file("z_big.go", big),
		file("a_big.go", big),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesConsidered != 2 {
		t.Fatalf("FilesConsidered = %d, want 2", res.FilesConsidered)
	}
	if _, ok := res.DuplicatedLines["small.go"]; ok {
		t.Error("small.go should have been dropped by the file cap")
	}
	if res.Findings[0].FileA != "a_big.go" {
		t.Errorf("FileA = %s, want a_big.go", res.Findings[0].FileA)
	}
}

func TestDetect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Detect(ctx, []SourceFile{file("a.go", block), file("b.go", block)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSelectFiles(t *testing.T) {
	got := selectFiles([]SourceFile{
		file("c", "333"),
		file("a", "1"),
		file("b", "333"),
		file("d", "22"),
	}, 3)

	var paths []string
	for _, f := range got {
		paths = append(paths, f.Path)
	}
	if want := []string{"b", "c", "d"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestResult_NilSafe(t *testing.T) {
	var r *Result
	if r.Ratio() != 0 || r.DuplicatedLineCount() != 0 || r.Area() != "" {
		t.Error("nil result should report zero values")
	}
}
