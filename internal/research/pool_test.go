package research

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
)

func poolTask(name string, fetch func(ctx context.Context) (int, error)) Task[int] {
	return Task[int]{Provider: name, Action: "fetch", Fetch: fetch}
}

func TestRunPoolMergesAllSuccesses(t *testing.T) {
	j := NewJournal(0, nil)
	var sum int

	tasks := []Task[int]{
		poolTask("a", func(context.Context) (int, error) { return 1, nil }),
		poolTask("b", func(context.Context) (int, error) { return 2, nil }),
		poolTask("c", func(context.Context) (int, error) { return 4, nil }),
	}

	succeeded := RunPool(context.Background(), j.Stage("gather"), 3, tasks, func(v int) { sum += v })

	assert.Equal(t, 7, sum)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, succeeded)

	steps := j.Steps()
	require.Len(t, steps, 3)
	for _, s := range steps {
		assert.True(t, s.Success)
	}
}

func TestRunPoolAllProvidersFail(t *testing.T) {
	j := NewJournal(0, nil)
	var merges int

	tasks := []Task[int]{
		poolTask("a", func(context.Context) (int, error) {
			return 0, resilience.NewProviderError(eris.New("bad key"), resilience.CategoryAuth)
		}),
		poolTask("b", func(context.Context) (int, error) {
			return 0, resilience.NewProviderError(eris.New("slow down"), resilience.CategoryRateLimit)
		}),
	}

	succeeded := RunPool(context.Background(), j.Stage("gather"), 3, tasks, func(int) { merges++ })

	// Accumulator untouched, zero provenance, but one failed step per provider.
	assert.Zero(t, merges)
	assert.Empty(t, succeeded)

	steps := j.Steps()
	require.Len(t, steps, 2)
	for _, s := range steps {
		assert.False(t, s.Success)
		assert.NotEmpty(t, s.Error)
	}
	details := []string{steps[0].Detail, steps[1].Detail}
	assert.Contains(t, details[0]+details[1], "authentication")
	assert.Contains(t, details[0]+details[1], "rate_limit")
}

func TestRunPoolOneFailureDoesNotAbortSiblings(t *testing.T) {
	j := NewJournal(0, nil)
	var sum int

	tasks := []Task[int]{
		poolTask("ok", func(context.Context) (int, error) { return 10, nil }),
		poolTask("bad", func(context.Context) (int, error) { return 0, eris.New("boom") }),
		poolTask("ok2", func(context.Context) (int, error) { return 5, nil }),
	}

	succeeded := RunPool(context.Background(), j.Stage("gather"), 1, tasks, func(v int) { sum += v })

	assert.Equal(t, 15, sum)
	assert.ElementsMatch(t, []string{"ok", "ok2"}, succeeded)
	assert.Len(t, j.Steps(), 3)
}

func TestRunPoolConcurrencyCap(t *testing.T) {
	j := NewJournal(0, nil)

	var inFlight, peak atomic.Int32
	var mu sync.Mutex

	tasks := make([]Task[int], 0, 6)
	for i := 0; i < 6; i++ {
		tasks = append(tasks, poolTask("p", func(context.Context) (int, error) {
			n := inFlight.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return 1, nil
		}))
	}

	RunPool(context.Background(), j.Stage("gather"), 2, tasks, func(int) {})
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunPoolSingleSlotMergeIsOrderedAndUncorrupted(t *testing.T) {
	// With a single-slot cap the mutual-exclusion order is the task order, so
	// first-writer-wins merges are deterministic.
	j := NewJournal(0, nil)

	type acc struct{ field string }
	var a acc
	merge := func(v int) {
		if a.field == "" {
			if v == 1 {
				a.field = "first"
			} else {
				a.field = "second"
			}
		}
	}

	tasks := []Task[int]{
		poolTask("first", func(context.Context) (int, error) { return 1, nil }),
		poolTask("second", func(context.Context) (int, error) { return 2, nil }),
	}

	succeeded := RunPool(context.Background(), j.Stage("gather"), 1, tasks, merge)
	assert.Equal(t, []string{"first", "second"}, succeeded)
	assert.Equal(t, "first", a.field)
}

func TestRunPoolCancellationAbandonsInFlight(t *testing.T) {
	j := NewJournal(0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var merged atomic.Int32
	fastMerged := make(chan struct{})

	tasks := []Task[int]{
		poolTask("fast", func(context.Context) (int, error) { return 1, nil }),
		poolTask("slow", func(ctx context.Context) (int, error) {
			<-fastMerged
			<-ctx.Done()
			return 0, ctx.Err()
		}),
	}

	go func() {
		<-fastMerged
		cancel()
	}()

	succeeded := RunPool(ctx, j.Stage("gather"), 2, tasks, func(v int) {
		if merged.Add(1) == 1 {
			close(fastMerged)
		}
		_ = v
	})

	// Only the provider that completed before the signal contributed, and the
	// canceled provider is not recorded as an application failure.
	assert.Equal(t, int32(1), merged.Load())
	assert.Equal(t, []string{"fast"}, succeeded)
	for _, s := range j.Steps() {
		assert.True(t, s.Success)
	}
}
