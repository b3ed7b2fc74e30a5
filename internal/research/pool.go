package research

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
)

// DefaultConcurrency caps how many providers a gather stage runs at once.
const DefaultConcurrency = 3

// Task is one provider invocation fed to the pool runner. Fetch must honor
// ctx so an abandoned call returns promptly.
type Task[P any] struct {
	Provider string
	Action   string
	Fetch    func(ctx context.Context) (P, error)
}

// RunPool executes tasks concurrently under the given cap, merging each
// successful partial result via merge under a single lock held only for the
// merge itself. Per-provider failures are recorded as failed steps with their
// error category and never abort sibling providers. Returns the names of the
// providers that contributed, in completion order.
//
// If ctx is canceled, RunPool returns with whatever merged before the signal;
// in-flight providers are abandoned and their results discarded.
func RunPool[P any](ctx context.Context, rec *Recorder, concurrency int, tasks []Task[P], merge func(P)) []string {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		mu        sync.Mutex
		succeeded []string
	)

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for _, t := range tasks {
		g.Go(func() error {
			start := time.Now()
			partial, err := t.Fetch(ctx)
			elapsed := time.Since(start)

			if err != nil {
				if resilience.IsCancellation(err) || ctx.Err() != nil {
					return nil
				}
				category := resilience.Classify(err)
				rec.Fail(t.Action, fmt.Sprintf("provider %s (%s)", t.Provider, category), err, elapsed)
				return nil
			}

			// A result that lands after cancellation is discarded, not merged.
			if ctx.Err() != nil {
				return nil
			}

			mu.Lock()
			merge(partial)
			succeeded = append(succeeded, t.Provider)
			mu.Unlock()

			rec.StepTimed(t.Action, "provider "+t.Provider, elapsed)
			return nil
		})
	}

	// Wait is called off to the side so a canceled context can abandon
	// in-flight providers. A panic inside a task re-panics out of Wait; it is
	// forwarded here so it surfaces in the caller's goroutine.
	done := make(chan struct{})
	panicked := make(chan any, 1)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicked <- r
			}
		}()
		_ = g.Wait()
	}()

	select {
	case <-done:
		select {
		case r := <-panicked:
			panic(r)
		default:
		}
	case <-ctx.Done():
		// Abandoned providers exit on their own once their fetch observes
		// the canceled context.
	}

	mu.Lock()
	out := make([]string, len(succeeded))
	copy(out, succeeded)
	mu.Unlock()
	return out
}
