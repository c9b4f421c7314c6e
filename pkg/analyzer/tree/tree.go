// Package tree resolves the branch to analyze and lists its files.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/pkg/models"
)

// ErrNoBranch is returned when no candidate branch could be listed.
var ErrNoBranch = errors.New("no branch could be resolved")

// DefaultCandidates are tried after the requested and default branches.
var DefaultCandidates = []string{"main", "master", "develop"}

// Result describes the resolved listing.
type Result struct {
	Branch    string
	SHA       string
	Truncated bool
	Empty     bool
	Attempted []string
}

// Walker lists a repository tree through a gateway.
type Walker struct {
	gateway    gateway.Gateway
	candidates []string
	logger     *slog.Logger
}

// Option is a functional option for configuring Walker.
type Option func(*Walker)

// WithCandidates replaces the fallback branch names.
func WithCandidates(branches []string) Option {
	return func(w *Walker) {
		w.candidates = branches
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = l
	}
}

// New creates a walker.
func New(gw gateway.Gateway, opts ...Option) *Walker {
	w := &Walker{
		gateway:    gw,
		candidates: DefaultCandidates,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Candidates returns the branch names to try, in order, without blanks or
// repeats.
func (w *Walker) Candidates(ref models.RepositoryRef, meta *gateway.Metadata) []string {
	var ordered []string
	ordered = append(ordered, ref.Ref)
	if meta != nil {
		ordered = append(ordered, meta.DefaultBranch)
	}
	ordered = append(ordered, w.candidates...)

	seen := make(map[string]bool, len(ordered))
	out := make([]string, 0, len(ordered))
	for _, b := range ordered {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

// Resolve tries each candidate branch until one lists. A missing branch
// moves on to the next candidate; a rate limit stops immediately. When no
// candidate works the error wraps ErrNoBranch and names every branch tried.
func (w *Walker) Resolve(ctx context.Context, ref models.RepositoryRef, meta *gateway.Metadata) ([]models.FileEntry, Result, error) {
	var (
		attempted []string
		lastErr   error
	)

	for _, branch := range w.Candidates(ref, meta) {
		if err := ctx.Err(); err != nil {
			return nil, Result{Attempted: attempted}, err
		}

		attempted = append(attempted, branch)
		tree, err := w.gateway.Tree(ctx, ref, branch)
		switch {
		case err == nil:
			res := Result{
				Branch:    branch,
				SHA:       tree.SHA,
				Truncated: tree.Truncated,
				Empty:     len(tree.Entries) == 0,
				Attempted: attempted,
			}
			if tree.Truncated {
				w.logger.Warn("Tree listing truncated", "component", "tree", "repository", ref.FullName(), "branch", branch)
			}
			return tree.Entries, res, nil
		case errors.Is(err, gateway.ErrRateLimited):
			return nil, Result{Attempted: attempted}, err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, Result{Attempted: attempted}, err
		case errors.Is(err, gateway.ErrNotFound):
			w.logger.Debug("Branch not found", "component", "tree", "repository", ref.FullName(), "branch", branch)
		default:
			w.logger.Debug("Branch listing failed", "component", "tree", "repository", ref.FullName(), "branch", branch, "error", err)
			lastErr = err
		}
	}

	err := fmt.Errorf("%w: tried %s", ErrNoBranch, strings.Join(attempted, ", "))
	if lastErr != nil {
		err = fmt.Errorf("%w (last error: %w)", err, lastErr)
	}
	return nil, Result{Attempted: attempted}, err
}
