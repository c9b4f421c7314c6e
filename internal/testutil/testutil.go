// Package testutil provides an in-memory gateway for engine tests.
package testutil

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/pkg/models"
)

// FakeRepo is one repository served by FakeGateway.
type FakeRepo struct {
	Meta    gateway.Metadata
	MetaErr error

	// Branches maps branch name to file path to content.
	Branches  map[string]map[string]string
	TreeErrs  map[string]error
	Truncated bool

	FileErrs map[string]error

	IssueList []gateway.Issue
	IssuesErr error
	PullList  []gateway.PullRequest
	PullsErr  error
}

// NewFakeRepo returns a repository with metadata only.
func NewFakeRepo(meta gateway.Metadata) *FakeRepo {
	return &FakeRepo{
		Meta:     meta,
		Branches: make(map[string]map[string]string),
		TreeErrs: make(map[string]error),
		FileErrs: make(map[string]error),
	}
}

// WithBranch adds a branch holding files.
func (r *FakeRepo) WithBranch(branch string, files map[string]string) *FakeRepo {
	r.Branches[branch] = files
	return r
}

// FakeGateway serves FakeRepos keyed by owner/name and records calls.
type FakeGateway struct {
	mu    sync.Mutex
	repos map[string]*FakeRepo

	// BeforeFile runs before every FileContent call.
	BeforeFile func(ctx context.Context, path string) error

	TreeCalls []string
	FileCalls int
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// NewFakeGateway returns an empty fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{repos: make(map[string]*FakeRepo)}
}

// Add registers repo under fullName.
func (g *FakeGateway) Add(fullName string, repo *FakeRepo) *FakeGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.repos[fullName] = repo
	return g
}

func (g *FakeGateway) repo(ref models.RepositoryRef) (*FakeRepo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.repos[ref.FullName()]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", ref.FullName(), gateway.ErrNotFound)
	}
	return r, nil
}

// Metadata implements gateway.Gateway.
func (g *FakeGateway) Metadata(ctx context.Context, ref models.RepositoryRef) (*gateway.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := g.repo(ref)
	if err != nil {
		return nil, err
	}
	if r.MetaErr != nil {
		return nil, r.MetaErr
	}
	meta := r.Meta
	return &meta, nil
}

// Tree implements gateway.Gateway. Directory entries are synthesized from
// file paths.
func (g *FakeGateway) Tree(ctx context.Context, ref models.RepositoryRef, branch string) (*gateway.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := g.repo(ref)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.TreeCalls = append(g.TreeCalls, branch)
	g.mu.Unlock()

	if err := r.TreeErrs[branch]; err != nil {
		return nil, err
	}
	files, ok := r.Branches[branch]
	if !ok {
		return nil, fmt.Errorf("branch %s: %w", branch, gateway.ErrNotFound)
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	dirs := make(map[string]bool)
	var entries []models.FileEntry
	for _, p := range paths {
		for dir := path.Dir(p); dir != "." && !dirs[dir]; dir = path.Dir(dir) {
			dirs[dir] = true
			entries = append(entries, models.FileEntry{Path: dir, Kind: models.EntryTree})
		}
		entries = append(entries, models.FileEntry{Path: p, Kind: models.EntryBlob, Size: int64(len(files[p]))})
	}

	return &gateway.Tree{
		SHA:       fmt.Sprintf("sha-%s-%s-%d", strings.ReplaceAll(ref.FullName(), "/", "-"), branch, len(files)),
		Entries:   entries,
		Truncated: r.Truncated,
	}, nil
}

// FileContent implements gateway.Gateway.
func (g *FakeGateway) FileContent(ctx context.Context, ref models.RepositoryRef, branch, p string) ([]byte, error) {
	g.mu.Lock()
	g.FileCalls++
	hook := g.BeforeFile
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, p); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := g.repo(ref)
	if err != nil {
		return nil, err
	}
	if err := r.FileErrs[p]; err != nil {
		return nil, err
	}
	content, ok := r.Branches[branch][p]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", p, gateway.ErrNotFound)
	}
	return []byte(content), nil
}

// Issues implements gateway.Gateway.
func (g *FakeGateway) Issues(ctx context.Context, ref models.RepositoryRef, _ string) ([]gateway.Issue, error) {
	r, err := g.repo(ref)
	if err != nil {
		return nil, err
	}
	return r.IssueList, r.IssuesErr
}

// Pulls implements gateway.Gateway.
func (g *FakeGateway) Pulls(ctx context.Context, ref models.RepositoryRef, _ string) ([]gateway.PullRequest, error) {
	r, err := g.repo(ref)
	if err != nil {
		return nil, err
	}
	return r.PullList, r.PullsErr
}

// FileCallCount returns the number of FileContent calls so far.
func (g *FakeGateway) FileCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.FileCalls
}
