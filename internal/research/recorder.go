package research

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

// Observer is invoked synchronously once per recorded step, in the recording
// stage's execution order. A failing observer is logged and does not affect
// the step counter or the recorded step.
type Observer func(model.Step) error

// Counter hands out strictly increasing step sequence numbers. It is shared by
// every stage of one job execution so that concurrently recorded steps never
// collide, and it can be seeded so sequential stages continue numbering where
// the previous stage left off.
type Counter struct {
	n atomic.Int64
}

// NewCounter creates a counter whose first Next() returns start+1.
func NewCounter(start int) *Counter {
	c := &Counter{}
	c.n.Store(int64(start))
	return c
}

// Next reserves and returns the next sequence number.
func (c *Counter) Next() int {
	return int(c.n.Add(1))
}

// Current returns the last sequence number handed out.
func (c *Counter) Current() int {
	return int(c.n.Load())
}

// Journal collects the steps of one job execution. All stage recorders of a
// run share one journal, so the step history interleaves by completion order
// while sequence numbers stay unique and monotonic.
type Journal struct {
	counter  *Counter
	observer Observer

	mu    sync.Mutex
	steps []model.Step
}

// NewJournal creates a journal seeded at start with an optional observer.
func NewJournal(start int, obs Observer) *Journal {
	return &Journal{
		counter:  NewCounter(start),
		observer: obs,
	}
}

// Counter exposes the shared step counter.
func (j *Journal) Counter() *Counter {
	return j.counter
}

// Stage returns a recorder that tags its steps with the given stage name.
func (j *Journal) Stage(name string) *Recorder {
	return &Recorder{journal: j, stage: name}
}

// Steps returns a snapshot of all recorded steps ordered by sequence number.
func (j *Journal) Steps() []model.Step {
	j.mu.Lock()
	out := make([]model.Step, len(j.steps))
	copy(out, j.steps)
	j.mu.Unlock()

	sort.Slice(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out
}

func (j *Journal) record(step model.Step) model.Step {
	step.Seq = j.counter.Next()
	step.RecordedAt = time.Now().UTC()

	j.mu.Lock()
	j.steps = append(j.steps, step)
	j.mu.Unlock()

	// Observer runs outside the lock; it may do store I/O.
	if j.observer != nil {
		if err := j.observer(step); err != nil {
			zap.L().Warn("research: step observer failed",
				zap.Int("seq", step.Seq),
				zap.String("stage", step.Stage),
				zap.String("action", step.Action),
				zap.Error(err),
			)
		}
	}
	return step
}

// Recorder narrates one stage's progress into the shared journal.
type Recorder struct {
	journal *Journal
	stage   string
}

// Step records a successful unit of work.
func (r *Recorder) Step(action, detail string) model.Step {
	return r.journal.record(model.Step{
		Stage:   r.stage,
		Action:  action,
		Detail:  detail,
		Success: true,
	})
}

// StepTimed records a successful unit of work with its duration.
func (r *Recorder) StepTimed(action, detail string, d time.Duration) model.Step {
	return r.journal.record(model.Step{
		Stage:      r.stage,
		Action:     action,
		Detail:     detail,
		Success:    true,
		DurationMS: d.Milliseconds(),
	})
}

// Fail records a failed unit of work.
func (r *Recorder) Fail(action, detail string, err error, d time.Duration) model.Step {
	step := model.Step{
		Stage:      r.stage,
		Action:     action,
		Detail:     detail,
		Success:    false,
		DurationMS: d.Milliseconds(),
	}
	if err != nil {
		step.Error = err.Error()
	}
	return r.journal.record(step)
}
