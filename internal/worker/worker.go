// Package worker runs per-queue job loops bounded by a shared
// semaphore, so one busy queue cannot starve the others of slots.
package worker

import "context"

type Options[J any] struct {
	Ctx    context.Context
	Sem    chan struct{}
	Jobs   <-chan J
	Handle func(context.Context, J)
}

// Start launches one goroutine that drains Jobs, taking a semaphore
// slot per job. It exits when Ctx is done or Jobs is closed.
func Start[J any](opts Options[J]) {
	go func() {
		for {
			select {
			case <-opts.Ctx.Done():
				return
			case job, ok := <-opts.Jobs:
				if !ok {
					return
				}
				select {
				case opts.Sem <- struct{}{}:
				case <-opts.Ctx.Done():
					return
				}
				func() {
					defer func() { <-opts.Sem }()
					opts.Handle(opts.Ctx, job)
				}()
			}
		}
	}()
}

// Enqueue submits a job, giving up when either the caller's context or
// the workers' context ends first.
func Enqueue[J any](ctx, workersCtx context.Context, jobs chan<- J, job J) error {
	if ctx == nil {
		ctx = workersCtx
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-workersCtx.Done():
		return workersCtx.Err()
	case jobs <- job:
		return nil
	}
}
