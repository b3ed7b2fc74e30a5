package research

import (
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

func TestCounterSeeding(t *testing.T) {
	c := NewCounter(7)
	assert.Equal(t, 7, c.Current())
	assert.Equal(t, 8, c.Next())
	assert.Equal(t, 9, c.Next())
	assert.Equal(t, 9, c.Current())
}

func TestJournalSequencesAreContiguous(t *testing.T) {
	j := NewJournal(0, nil)
	rec := j.Stage("plan")

	rec.Step("one", "")
	rec.Step("two", "")
	rec.Fail("three", "", eris.New("boom"), 0)

	steps := j.Steps()
	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Seq)
	}
	assert.True(t, steps[0].Success)
	assert.False(t, steps[2].Success)
	assert.Equal(t, "boom", steps[2].Error)
}

func TestJournalConcurrentRecording(t *testing.T) {
	j := NewJournal(0, nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rec := j.Stage("gather")
			for i := 0; i < 25; i++ {
				rec.Step("work", "")
			}
		}(w)
	}
	wg.Wait()

	steps := j.Steps()
	require.Len(t, steps, 200)

	// Strictly increasing and contiguous from 1, no duplicates, regardless of
	// interleaving.
	for i, s := range steps {
		assert.Equal(t, i+1, s.Seq)
	}
	assert.Equal(t, 200, j.Counter().Current())
}

func TestJournalObserverInvokedOncePerStep(t *testing.T) {
	var observed []model.Step
	j := NewJournal(0, func(s model.Step) error {
		observed = append(observed, s)
		return nil
	})
	rec := j.Stage("plan")

	rec.Step("a", "")
	rec.Step("b", "")

	require.Len(t, observed, 2)
	assert.Equal(t, 1, observed[0].Seq)
	assert.Equal(t, 2, observed[1].Seq)
}

func TestJournalObserverFailureDoesNotCorruptCounter(t *testing.T) {
	calls := 0
	j := NewJournal(0, func(model.Step) error {
		calls++
		return eris.New("store unavailable")
	})
	rec := j.Stage("plan")

	s1 := rec.Step("a", "")
	s2 := rec.Step("b", "")

	assert.Equal(t, 1, s1.Seq)
	assert.Equal(t, 2, s2.Seq)
	assert.Equal(t, 2, calls)
	assert.Len(t, j.Steps(), 2)
}
