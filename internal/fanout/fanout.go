// Package fanout runs a bounded-concurrency producer/consumer pipeline
// over a set of scrapers: each producer streams results onto a shared
// channel, a dedup set collapses repeats by natural key, and the whole
// run is capped by either a maximum result count or a wall-clock budget,
// whichever comes first. It generalizes the teacher's pipe package (whose
// simple/batch/channel stages are the same bounded fan-out shape) to the
// immediate-path/background-continuation split spec.md §4.5/§9 describes.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Producer yields zero or more results for one scrape source. It must
// respect ctx cancellation promptly: once the caps in Run trip, ctx is
// cancelled and any producer still running should return.
type Producer[R any] func(ctx context.Context) ([]R, error)

// KeyFunc extracts the natural dedup key from a result (e.g. an info_hash).
type KeyFunc[R any] func(R) string

// Options configures one Run.
type Options[R any] struct {
	// MaxResults stops accepting further results once reached; already
	// running producers are cancelled, not interrupted mid-item.
	MaxResults int
	// MaxWait bounds the immediate-response window; after it elapses Run
	// returns whatever has accumulated so far and lets Continue finish the
	// rest in the background.
	MaxWait time.Duration
	// MaxConcurrency caps how many producers run at once (0 = unbounded).
	MaxConcurrency int
	Key            KeyFunc[R]
	OnError        func(error)
}

// Result is the outcome of a bounded Run: Items collected within the caps,
// and an optional Continue func that keeps draining any producers that
// hadn't finished when the caps tripped.
type Result[R any] struct {
	Items    []R
	Continue func(ctx context.Context) []R
}

// Run fans out over producers, collecting deduplicated results until
// MaxResults or MaxWait trips (whichever is first), then returns
// immediately with a Continue closure that lets the caller keep draining
// the remaining producers in the background — the Go equivalent of the
// source's capped async-generator fan-out with a background continuation.
func Run[R any](ctx context.Context, producers []Producer[R], opts Options[R]) Result[R] {
	if opts.Key == nil {
		opts.Key = func(r R) string { return "" }
	}

	runCtx, cancel := context.WithCancel(ctx)

	type item struct {
		value R
	}
	itemCh := make(chan item)
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		p := pool.New().WithMaxGoroutines(maxGoroutines(opts.MaxConcurrency, len(producers)))
		for _, producer := range producers {
			producer := producer
			p.Go(func() {
				results, err := producer(runCtx)
				if err != nil {
					if opts.OnError != nil {
						opts.OnError(err)
					}
					return
				}
				for _, r := range results {
					select {
					case <-runCtx.Done():
						return
					case itemCh <- item{value: r}:
					}
				}
			})
		}
		p.Wait()
		close(itemCh)
	}()

	seen := make(map[string]struct{})
	var mu sync.Mutex
	items := make([]R, 0, 32)

	collect := func(it item) bool {
		mu.Lock()
		defer mu.Unlock()
		key := opts.Key(it.value)
		if key != "" {
			if _, dup := seen[key]; dup {
				return opts.MaxResults <= 0 || len(items) < opts.MaxResults
			}
			seen[key] = struct{}{}
		}
		items = append(items, it.value)
		return opts.MaxResults <= 0 || len(items) < opts.MaxResults
	}

	var timeoutCh <-chan time.Time
	if opts.MaxWait > 0 {
		timer := time.NewTimer(opts.MaxWait)
		defer timer.Stop()
		timeoutCh = timer.C
	}

drain:
	for {
		select {
		case it, ok := <-itemCh:
			if !ok {
				break drain
			}
			if !collect(it) {
				cancel()
			}
		case <-timeoutCh:
			break drain
		case <-ctx.Done():
			break drain
		}
	}

	mu.Lock()
	snapshot := append([]R(nil), items...)
	mu.Unlock()

	remaining := itemCh
	alreadyDone := false
	select {
	case <-doneCh:
		alreadyDone = true
	default:
	}

	continueFn := func(bgCtx context.Context) []R {
		if alreadyDone {
			return nil
		}
		var more []R
		for {
			select {
			case it, ok := <-remaining:
				if !ok {
					return more
				}
				mu.Lock()
				key := opts.Key(it.value)
				_, dup := seen[key]
				if key == "" || !dup {
					if key != "" {
						seen[key] = struct{}{}
					}
					more = append(more, it.value)
				}
				mu.Unlock()
			case <-bgCtx.Done():
				return more
			case <-doneCh:
				return more
			}
		}
	}

	return Result[R]{Items: snapshot, Continue: continueFn}
}

func maxGoroutines(configured, producerCount int) int {
	if configured > 0 {
		return configured
	}
	if producerCount > 0 {
		return producerCount
	}
	return 1
}
