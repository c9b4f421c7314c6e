package remote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/panbanda/repohealth/pkg/models"
)

// ErrInvalidReference is returned when input does not name a repository.
var ErrInvalidReference = errors.New("invalid repository reference")

// DefaultHost is assumed for owner/repo shorthand.
const DefaultHost = "github.com"

// Parse turns user input into a repository reference. Accepted forms:
//
//	owner/repo
//	owner/repo@branch
//	github.com/owner/repo
//	https://github.com/owner/repo(.git)
//	https://github.com/owner/repo/tree/branch
//	git@github.com:owner/repo.git
func Parse(input string) (models.RepositoryRef, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return models.RepositoryRef{}, fmt.Errorf("%w: empty input", ErrInvalidReference)
	}

	var p string
	hosted := true
	switch {
	case strings.HasPrefix(s, "git@"):
		_, rest, ok := strings.Cut(strings.TrimPrefix(s, "git@"), ":")
		if !ok {
			return models.RepositoryRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, input)
		}
		p = rest
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return models.RepositoryRef{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		p = u.Path
	default:
		p = s
		hosted = false
	}

	ref := ""
	if idx := strings.LastIndex(p, "@"); idx != -1 {
		ref = p[idx+1:]
		p = p[:idx]
	}

	segments := splitPath(p)
	// github.com/owner/repo without a scheme
	if !hosted && len(segments) > 2 && strings.Contains(segments[0], ".") {
		segments = segments[1:]
		hosted = true
	}

	if len(segments) < 2 {
		return models.RepositoryRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, input)
	}

	owner := segments[0]
	name := strings.TrimSuffix(segments[1], ".git")
	if !hosted && strings.Contains(owner, ".") {
		return models.RepositoryRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, input)
	}

	// https://host/owner/repo/tree/<branch>
	if ref == "" && len(segments) > 3 && segments[2] == "tree" {
		ref = strings.Join(segments[3:], "/")
	}

	if owner == "" || name == "" {
		return models.RepositoryRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, input)
	}

	return models.RepositoryRef{Owner: owner, Name: name, Ref: ref}, nil
}

// CloneURL returns the HTTPS clone URL for ref. base overrides the default
// https://github.com prefix.
func CloneURL(ref models.RepositoryRef, base string) string {
	if base == "" {
		base = "https://" + DefaultHost
	}
	return strings.TrimSuffix(base, "/") + "/" + ref.FullName() + ".git"
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
