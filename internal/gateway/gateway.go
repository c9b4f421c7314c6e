// Package gateway reads repository metadata, trees, file contents, issues
// and pull requests from a remote host.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

// Sentinel errors every gateway maps its failures onto.
var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnsupported  = errors.New("not supported by this gateway")
)

// Gateway is the read-only view of a hosted repository.
type Gateway interface {
	Metadata(ctx context.Context, ref models.RepositoryRef) (*Metadata, error)
	// Tree returns the recursive listing of branch, or ErrNotFound when the
	// branch does not exist.
	Tree(ctx context.Context, ref models.RepositoryRef, branch string) (*Tree, error)
	FileContent(ctx context.Context, ref models.RepositoryRef, branch, path string) ([]byte, error)
	// Issues returns issues in state, newest first, pull requests excluded.
	Issues(ctx context.Context, ref models.RepositoryRef, state string) ([]Issue, error)
	// Pulls returns pull requests in state, oldest first.
	Pulls(ctx context.Context, ref models.RepositoryRef, state string) ([]PullRequest, error)
}

// RepositoryLister is implemented by gateways that can enumerate the
// repositories a credential has access to.
type RepositoryLister interface {
	ListOwned(ctx context.Context) ([]models.RepositoryRef, error)
}

// Metadata describes a repository. Zero values mean "unknown".
type Metadata struct {
	FullName       string
	Description    string
	Language       string
	DefaultBranch  string
	HTMLURL        string
	Size           int // KB
	OpenIssueCount int
	Stars          int
	PushedAt       time.Time
	HasWiki        bool
	Private        bool
}

// Tree is a recursive listing of one branch.
type Tree struct {
	SHA       string
	Entries   []models.FileEntry
	Truncated bool
}

// Issue is an open issue.
type Issue struct {
	Number    int
	Title     string
	CreatedAt time.Time
}

// PullRequest is an open pull request.
type PullRequest struct {
	Number    int
	Title     string
	Author    string
	CreatedAt time.Time
}

// Issue and pull request states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// Options holds settings shared by the concrete gateways.
type Options struct {
	BaseURL       string
	CloneURL      string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	CloneDepth    int
	Logger        *slog.Logger
}

// OptionsFromConfig converts the gateway config section.
func OptionsFromConfig(cfg config.GatewayConfig) Options {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return Options{
		BaseURL:       cfg.BaseURL,
		CloneURL:      cfg.CloneURL,
		Timeout:       time.Duration(cfg.Timeout) * time.Second,
		RetryAttempts: uint(attempts),
		CloneDepth:    1,
		Logger:        slog.Default(),
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// New builds the gateway named by cfg.Kind for one credential.
func New(cfg config.GatewayConfig, credential string) (Gateway, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Kind {
	case "", "github":
		return NewGitHub(opts, credential)
	case "git":
		return NewGit(opts, credential), nil
	default:
		return nil, fmt.Errorf("unknown gateway kind %q", cfg.Kind)
	}
}
