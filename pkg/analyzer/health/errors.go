package health

import (
	"errors"
	"fmt"

	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/pkg/analyzer/tree"
)

// Kind classifies a hard error.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindUnavailable  Kind = "unavailable"
	KindRateLimited  Kind = "rate_limited"
	KindNoBranch     Kind = "no_branch"
)

func (k Kind) describe() string {
	switch k {
	case KindUnauthorized:
		return "access denied"
	case KindNotFound:
		return "repository not found"
	case KindRateLimited:
		return "rate limit exhausted"
	case KindNoBranch:
		return "no branch could be listed"
	default:
		return "remote unavailable"
	}
}

// Error is returned when no report can be produced at all. Degraded
// analyses are reported through Diagnostics instead.
type Error struct {
	Kind       Kind
	Repository string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analyzing %s: %s: %v", e.Repository, e.Kind.describe(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a hard error, or "" when err is not one.
func KindOf(err error) Kind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return ""
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, gateway.ErrNotFound):
		return KindNotFound
	case errors.Is(err, gateway.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, tree.ErrNoBranch):
		return KindNoBranch
	default:
		return KindUnavailable
	}
}

func newError(repository string, err error) *Error {
	return &Error{Kind: classify(err), Repository: repository, Err: err}
}
