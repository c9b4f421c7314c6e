package health

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/panbanda/repohealth/internal/gateway"
)

// rateGuard scopes one report's concurrent fetches. The first rate-limit
// error from any of them cancels the rest.
type rateGuard struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	limited atomic.Bool
}

func newRateGuard(parent context.Context) *rateGuard {
	ctx, cancel := context.WithCancelCause(parent)
	return &rateGuard{ctx: ctx, cancel: cancel}
}

// observe records err and stops sibling fetches if it is a rate limit.
func (g *rateGuard) observe(err error) {
	if errors.Is(err, gateway.ErrRateLimited) {
		g.limited.Store(true)
		g.cancel(err)
	}
}

func (g *rateGuard) hit() bool {
	return g.limited.Load()
}

// reason maps a cancellation caused by a sibling's rate limit back to that
// rate limit.
func (g *rateGuard) reason(err error) error {
	if err != nil && g.hit() && errors.Is(err, context.Canceled) {
		if cause := context.Cause(g.ctx); cause != nil {
			return cause
		}
	}
	return err
}

func (g *rateGuard) release() {
	g.cancel(nil)
}
