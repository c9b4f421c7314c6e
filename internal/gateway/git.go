package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/panbanda/repohealth/internal/remote"
	"github.com/panbanda/repohealth/pkg/models"
)

// openFunc produces a repository for a clone URL.
type openFunc func(ctx context.Context, url string, auth transport.AuthMethod, depth int) (*git.Repository, error)

// Git reads repositories by cloning them into memory. It works against any
// git host but cannot see issues or pull requests.
type Git struct {
	credential string
	opts       Options
	logger     *slog.Logger
	open       openFunc

	mu    sync.Mutex
	repos map[string]*clone
}

// clone is one repository's in-flight or finished clone. done closes when
// repo and err are set.
type clone struct {
	done chan struct{}
	repo *git.Repository
	err  error
}

var _ Gateway = (*Git)(nil)

// NewGit creates a clone-based gateway.
func NewGit(opts Options, credential string) *Git {
	return &Git{
		credential: credential,
		opts:       opts,
		logger:     opts.logger(),
		open:       cloneInMemory,
		repos:      make(map[string]*clone),
	}
}

func cloneInMemory(ctx context.Context, url string, auth transport.AuthMethod, depth int) (*git.Repository, error) {
	return git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
		URL:        url,
		Auth:       auth,
		Depth:      depth,
		NoCheckout: true,
		Tags:       git.NoTags,
	})
}

func (g *Git) auth(ref models.RepositoryRef) transport.AuthMethod {
	token := g.credential
	if ref.Credential != "" {
		token = ref.Credential
	}
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: token}
}

// repository clones ref once and reuses the clone for later calls. Distinct
// repositories clone in parallel; concurrent calls for the same repository
// wait for one clone. A failed clone is forgotten so a later call retries.
func (g *Git) repository(ctx context.Context, ref models.RepositoryRef) (*git.Repository, error) {
	key := ref.FullName()

	g.mu.Lock()
	c, ok := g.repos[key]
	if !ok {
		c = &clone{done: make(chan struct{})}
		g.repos[key] = c
	}
	g.mu.Unlock()

	if ok {
		select {
		case <-c.done:
			return c.repo, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	url := remote.CloneURL(ref, g.opts.CloneURL)
	g.logger.Debug("Cloning repository", "component", "gateway", "repository", key)

	repo, err := g.open(ctx, url, g.auth(ref), g.opts.CloneDepth)
	if err != nil {
		c.err = classifyGitError(err)
		g.mu.Lock()
		delete(g.repos, key)
		g.mu.Unlock()
	} else {
		c.repo = repo
	}
	close(c.done)
	return c.repo, c.err
}

func classifyGitError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case errors.Is(err, plumbing.ErrReferenceNotFound), errors.Is(err, object.ErrFileNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}

// Metadata derives what it can from HEAD. An empty remote reports size 0.
func (g *Git) Metadata(ctx context.Context, ref models.RepositoryRef) (*Metadata, error) {
	repo, err := g.repository(ctx, ref)
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return &Metadata{FullName: ref.FullName()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", ref.FullName(), err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return &Metadata{FullName: ref.FullName()}, nil
		}
		return nil, fmt.Errorf("resolve HEAD of %s: %w", ref.FullName(), err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit of %s: %w", ref.FullName(), err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read HEAD tree of %s: %w", ref.FullName(), err)
	}

	var bytes int64
	err = tree.Files().ForEach(func(f *object.File) error {
		bytes += f.Size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("size HEAD tree of %s: %w", ref.FullName(), err)
	}

	size := int(bytes / 1024)
	if size == 0 && bytes > 0 {
		size = 1
	}

	return &Metadata{
		FullName:      ref.FullName(),
		DefaultBranch: head.Name().Short(),
		Size:          size,
		PushedAt:      commit.Committer.When,
	}, nil
}

// resolveBranch finds branch among the remote-tracking refs of a clone, or
// the local branches of a repository opened in place.
func resolveBranch(repo *git.Repository, branch string) (*object.Commit, error) {
	names := []plumbing.ReferenceName{
		plumbing.NewRemoteReferenceName("origin", branch),
		plumbing.NewBranchReferenceName(branch),
	}
	for _, name := range names {
		r, err := repo.Reference(name, true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return repo.CommitObject(r.Hash())
	}
	return nil, fmt.Errorf("branch %q: %w", branch, ErrNotFound)
}

// Tree walks the tree of branch.
func (g *Git) Tree(ctx context.Context, ref models.RepositoryRef, branch string) (*Tree, error) {
	repo, err := g.repository(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", ref.FullName(), err)
	}

	commit, err := resolveBranch(repo, branch)
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", branch, err)
	}

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	out := &Tree{SHA: tree.Hash.String()}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk tree of %s: %w", branch, err)
		}

		switch {
		case entry.Mode == filemode.Dir:
			out.Entries = append(out.Entries, models.FileEntry{Path: name, Kind: models.EntryTree})
		case entry.Mode == filemode.Submodule:
			continue
		default:
			var size int64
			if blob, err := repo.BlobObject(entry.Hash); err == nil {
				size = blob.Size
			}
			out.Entries = append(out.Entries, models.FileEntry{Path: name, Kind: models.EntryBlob, Size: size})
		}
	}
	return out, nil
}

// FileContent reads one file from branch.
func (g *Git) FileContent(ctx context.Context, ref models.RepositoryRef, branch, path string) ([]byte, error) {
	repo, err := g.repository(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", ref.FullName(), err)
	}

	commit, err := resolveBranch(repo, branch)
	if err != nil {
		return nil, err
	}

	f, err := commit.File(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, classifyGitError(err))
	}

	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return []byte(content), nil
}

// Issues is not available over plain git.
func (g *Git) Issues(context.Context, models.RepositoryRef, string) ([]Issue, error) {
	return nil, fmt.Errorf("issues: %w", ErrUnsupported)
}

// Pulls is not available over plain git.
func (g *Git) Pulls(context.Context, models.RepositoryRef, string) ([]PullRequest, error) {
	return nil, fmt.Errorf("pull requests: %w", ErrUnsupported)
}
