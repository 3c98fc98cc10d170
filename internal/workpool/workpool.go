// Package workpool runs a processor over a slice with bounded
// concurrency and a shared rate limit, collecting results in input
// order.
package workpool

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Options bounds a pool run.
type Options struct {
	// Workers is the number of concurrent goroutines, default 8.
	Workers int
	// RatePerSecond is a global limit shared by all workers. Zero or
	// negative disables limiting.
	RatePerSecond float64
	// Burst is the limiter burst size, default 1.
	Burst int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	return o
}

// Result holds the output slot for one input item.
type Result[Out any] struct {
	Value Out
	Err   error
}

// ProcessAll runs process over every item. The returned slice is
// indexed like items regardless of completion order. Per-item errors
// land in their slot and never stop the other items; only context
// cancellation aborts the run, and then the partial results are
// discarded and the context's error returned.
func ProcessAll[In, Out any](ctx context.Context, items []In, process func(context.Context, In) (Out, error), opts Options) ([]Result[Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst)
	}

	results := make([]Result[Out], len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx].Err = err
					continue
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						results[idx].Err = err
						continue
					}
				}
				out, err := process(ctx, items[idx])
				results[idx] = Result[Out]{Value: out, Err: err}
			}
		}()
	}

feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
