package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"

	"github.com/panbanda/repohealth/pkg/models"
)

const perPage = 100

// GitHub reads repositories through the GitHub REST API.
type GitHub struct {
	client     *github.Client
	credential string
	opts       Options
	logger     *slog.Logger
}

var (
	_ Gateway          = (*GitHub)(nil)
	_ RepositoryLister = (*GitHub)(nil)
)

// NewGitHub creates a GitHub gateway authenticated with credential. An empty
// credential gives anonymous access. opts.BaseURL points the client at a
// GitHub Enterprise API root (https://host/api/v3/) or a test server.
func NewGitHub(opts Options, credential string) (*GitHub, error) {
	client := github.NewClient(&http.Client{Timeout: opts.Timeout})
	if credential != "" {
		client = client.WithAuthToken(credential)
	}

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid gateway base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	return &GitHub{
		client:     client,
		credential: credential,
		opts:       opts,
		logger:     opts.logger(),
	}, nil
}

// clientFor honours a per-request credential that differs from the one the
// gateway was built with.
func (g *GitHub) clientFor(ref models.RepositoryRef) *github.Client {
	if ref.Credential != "" && ref.Credential != g.credential {
		return g.client.WithAuthToken(ref.Credential)
	}
	return g.client
}

func (g *GitHub) do(ctx context.Context, operation string, fn func() (*github.Response, error)) error {
	return withRetry(ctx, g.logger, g.opts.RetryAttempts, g.opts.RetryDelay, operation, func() error {
		resp, err := fn()
		if err != nil {
			return classifyGitHubError(resp, err)
		}
		g.logger.Debug("GitHub request", "component", "gateway", "operation", operation, "status", resp.StatusCode)
		return nil
	})
}

// Metadata fetches repository metadata.
func (g *GitHub) Metadata(ctx context.Context, ref models.RepositoryRef) (*Metadata, error) {
	var repo *github.Repository
	err := g.do(ctx, "repos.get", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = g.clientFor(ref).Repositories.Get(ctx, ref.Owner, ref.Name)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", ref.FullName(), err)
	}

	return &Metadata{
		FullName:       repo.GetFullName(),
		Description:    repo.GetDescription(),
		Language:       repo.GetLanguage(),
		DefaultBranch:  repo.GetDefaultBranch(),
		HTMLURL:        repo.GetHTMLURL(),
		Size:           repo.GetSize(),
		OpenIssueCount: repo.GetOpenIssuesCount(),
		Stars:          repo.GetStargazersCount(),
		PushedAt:       repo.GetPushedAt().Time,
		HasWiki:        repo.GetHasWiki(),
		Private:        repo.GetPrivate(),
	}, nil
}

// Tree lists every entry of branch recursively.
func (g *GitHub) Tree(ctx context.Context, ref models.RepositoryRef, branch string) (*Tree, error) {
	var tree *github.Tree
	err := g.do(ctx, "git.tree", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		tree, resp, err = g.clientFor(ref).Git.GetTree(ctx, ref.Owner, ref.Name, branch, true)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("get tree %s@%s: %w", ref.FullName(), branch, err)
	}

	out := &Tree{
		SHA:       tree.GetSHA(),
		Truncated: tree.GetTruncated(),
		Entries:   make([]models.FileEntry, 0, len(tree.Entries)),
	}
	for _, e := range tree.Entries {
		var kind models.EntryKind
		switch e.GetType() {
		case "blob":
			kind = models.EntryBlob
		case "tree":
			kind = models.EntryTree
		default:
			// submodule commits
			continue
		}
		out.Entries = append(out.Entries, models.FileEntry{
			Path: e.GetPath(),
			Kind: kind,
			Size: int64(e.GetSize()),
		})
	}
	return out, nil
}

// FileContent returns the decoded content of one file.
func (g *GitHub) FileContent(ctx context.Context, ref models.RepositoryRef, branch, path string) ([]byte, error) {
	var file *github.RepositoryContent
	err := g.do(ctx, "repos.contents", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		file, _, resp, err = g.clientFor(ref).Repositories.GetContents(ctx, ref.Owner, ref.Name, path,
			&github.RepositoryContentGetOptions{Ref: branch})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("get contents %s: %w", path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("get contents %s: is a directory: %w", path, ErrNotFound)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode contents %s: %w", path, err)
	}
	return []byte(content), nil
}

// Issues lists issues newest first. Only the first page is read.
func (g *GitHub) Issues(ctx context.Context, ref models.RepositoryRef, state string) ([]Issue, error) {
	var issues []*github.Issue
	err := g.do(ctx, "issues.list", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		issues, resp, err = g.clientFor(ref).Issues.ListByRepo(ctx, ref.Owner, ref.Name, &github.IssueListByRepoOptions{
			State:       state,
			Sort:        "created",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("list issues %s: %w", ref.FullName(), err)
	}

	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		// the issues endpoint also returns pull requests
		if is.IsPullRequest() {
			continue
		}
		out = append(out, Issue{
			Number:    is.GetNumber(),
			Title:     is.GetTitle(),
			CreatedAt: is.GetCreatedAt().Time,
		})
	}
	return out, nil
}

// Pulls lists pull requests oldest first. Only the first page is read.
func (g *GitHub) Pulls(ctx context.Context, ref models.RepositoryRef, state string) ([]PullRequest, error) {
	var pulls []*github.PullRequest
	err := g.do(ctx, "pulls.list", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		pulls, resp, err = g.clientFor(ref).PullRequests.List(ctx, ref.Owner, ref.Name, &github.PullRequestListOptions{
			State:       state,
			Sort:        "created",
			Direction:   "asc",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("list pulls %s: %w", ref.FullName(), err)
	}

	out := make([]PullRequest, 0, len(pulls))
	for _, pr := range pulls {
		out = append(out, PullRequest{
			Number:    pr.GetNumber(),
			Title:     pr.GetTitle(),
			Author:    pr.GetUser().GetLogin(),
			CreatedAt: pr.GetCreatedAt().Time,
		})
	}
	return out, nil
}

// ListOwned lists every repository the credential can access, most recently
// updated first.
func (g *GitHub) ListOwned(ctx context.Context) ([]models.RepositoryRef, error) {
	if g.credential == "" {
		return nil, fmt.Errorf("list repositories: %w: a credential is required", ErrUnauthorized)
	}

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var refs []models.RepositoryRef
	for {
		var repos []*github.Repository
		var next int
		err := g.do(ctx, "repos.list", func() (*github.Response, error) {
			var resp *github.Response
			var err error
			repos, resp, err = g.client.Repositories.ListByAuthenticatedUser(ctx, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", err)
		}

		for _, r := range repos {
			refs = append(refs, models.RepositoryRef{
				Owner:      r.GetOwner().GetLogin(),
				Name:       r.GetName(),
				Credential: g.credential,
			})
		}

		if next == 0 {
			return refs, nil
		}
		opts.Page = next
	}
}

// classifyGitHubError maps go-github errors onto the gateway sentinels.
func classifyGitHubError(resp *github.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	status := 0
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status = respErr.Response.StatusCode
	} else if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	switch {
	case status == http.StatusNotFound, status == http.StatusConflict:
		// 409 is returned for trees of empty repositories
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", errTransient, err)
	case status == 0:
		// no response: network failure
		return fmt.Errorf("%w: %w", errTransient, err)
	default:
		return err
	}
}
