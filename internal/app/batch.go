package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-request-gateway/pkg/endpoints"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one endpoint in a batch.
type Result struct {
	ID      string
	Body    gateway.Body
	Err     error
	Elapsed time.Duration
}

// RunBatch issues every loaded endpoint concurrently, at most
// batch_concurrency (at least one) at a time. Results keep registry order.
// A failed endpoint does not stop the others; their errors are joined.
func (r *Runtime) RunBatch(ctx context.Context) ([]Result, error) {
	if r == nil || r.gw == nil {
		return nil, fmt.Errorf("runtime is not initialized")
	}
	list := r.endpoints.All()
	if len(list) == 0 {
		return nil, fmt.Errorf("no endpoints configured for batch")
	}

	start := time.Now()
	results := make([]Result, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.batchLimit)
	for i, e := range list {
		g.Go(func() error {
			results[i] = r.runEndpoint(gctx, e)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("endpoint %s: %w", res.ID, res.Err))
		}
	}
	r.log.InfoObj("batch completed", "batch_meta", map[string]any{
		"endpoints_count": len(list),
		"failed":          len(errs),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return results, errors.Join(errs...)
}

func (r *Runtime) runEndpoint(ctx context.Context, e endpoints.Endpoint) Result {
	start := time.Now()
	body, err := r.Call(ctx, e.ToCall())
	res := Result{ID: e.ID, Body: body, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		r.log.ErrorObj("endpoint call failed", "endpoint_error", map[string]any{
			"endpoint_id": e.ID,
			"error":       err.Error(),
		})
	}
	return res
}
