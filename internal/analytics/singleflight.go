package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// singleflightBuild shares one execution of fn per key. fn runs detached from
// the first caller's cancellation, bounded by timeout, so a caller that gives
// up only stops its own wait.
func singleflightBuild(ctx context.Context, group *singleflight.Group, key string, timeout time.Duration, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := group.DoChan(key, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
