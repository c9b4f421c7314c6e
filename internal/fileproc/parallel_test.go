package fileproc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

var errLimited = errors.New("rate limited")

func echo(ctx context.Context, path string) ([]byte, error) {
	return []byte("content of " + path), nil
}

func TestFetch(t *testing.T) {
	paths := []string{"a.go", "b.go", "c.go"}

	result := Fetch(context.Background(), paths, echo)

	if len(result.Files) != len(paths) {
		t.Fatalf("Expected %d files, got %d", len(paths), len(result.Files))
	}
	for i, f := range result.Files {
		if f.Path != paths[i] {
			t.Errorf("Files[%d].Path = %s, want %s (input order)", i, f.Path, paths[i])
		}
		if string(f.Content) != "content of "+paths[i] {
			t.Errorf("Files[%d].Content = %q", i, f.Content)
		}
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}
	if result.Errors.HasErrors() {
		t.Errorf("Unexpected errors: %v", result.Errors)
	}
}

func TestFetch_EmptyPathList(t *testing.T) {
	result := Fetch(context.Background(), nil, echo)
	if len(result.Files) != 0 || result.Skipped != 0 || result.Halted != nil {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestFetch_OneFailureExcludesOnlyThatFile(t *testing.T) {
	paths := make([]string, 10)
	for i := range paths {
		paths[i] = fmt.Sprintf("file%d.go", i)
	}

	result := Fetch(context.Background(), paths, func(ctx context.Context, path string) ([]byte, error) {
		if path == "file3.go" {
			return nil, errors.New("not found")
		}
		return []byte(path), nil
	})

	if len(result.Files) != 9 {
		t.Errorf("Expected 9 files, got %d", len(result.Files))
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if len(result.Errors.Errors) != 1 || result.Errors.Errors[0].Path != "file3.go" {
		t.Errorf("Errors = %v", result.Errors.Errors)
	}
	if result.Halted != nil {
		t.Errorf("Halted = %v, want nil", result.Halted)
	}
}

func TestFetch_StopHaltsOutstandingWork(t *testing.T) {
	paths := make([]string, 50)
	for i := range paths {
		paths[i] = fmt.Sprintf("file%02d.go", i)
	}

	var calls atomic.Int32
	result := Fetch(context.Background(), paths, func(ctx context.Context, path string) ([]byte, error) {
		calls.Add(1)
		if path == "file00.go" {
			return nil, errLimited
		}
		return []byte(path), nil
	},
		WithWorkers(1),
		WithStop(func(err error) bool { return errors.Is(err, errLimited) }),
	)

	if !errors.Is(result.Halted, errLimited) {
		t.Errorf("Halted = %v, want errLimited", result.Halted)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch called %d times, want 1 after the stop signal", got)
	}
	if result.Skipped != len(paths) {
		t.Errorf("Skipped = %d, want %d", result.Skipped, len(paths))
	}
	if result.Errors.HasErrors() {
		t.Errorf("halting error should not be recorded per file: %v", result.Errors)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	result := Fetch(ctx, []string{"a", "b", "c"}, func(ctx context.Context, path string) ([]byte, error) {
		calls.Add(1)
		return nil, nil
	})

	if calls.Load() != 0 {
		t.Errorf("fetch called %d times on a cancelled context", calls.Load())
	}
	if result.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", result.Skipped)
	}
}

func TestFetch_Progress(t *testing.T) {
	var ticks atomic.Int32
	Fetch(context.Background(), []string{"a", "b", "c", "d"}, func(ctx context.Context, path string) ([]byte, error) {
		if path == "b" {
			return nil, errors.New("boom")
		}
		return nil, nil
	}, WithProgress(func() { ticks.Add(1) }), WithWorkers(2))

	if ticks.Load() != 4 {
		t.Errorf("progress ticks = %d, want 4", ticks.Load())
	}
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("new collection should be empty")
	}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("a.go", errors.New("boom"))
	if errs.Error() != "a.go: boom" {
		t.Errorf("Error() = %q, want %q", errs.Error(), "a.go: boom")
	}

	errs.Add("b.go", errors.New("bang"))
	if errs.Error() != "2 files failed to process (first: a.go: boom)" {
		t.Errorf("Error() = %q", errs.Error())
	}
}
