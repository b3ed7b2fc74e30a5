package processor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/research"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/store"
)

// Runner executes one research job. *research.Orchestrator satisfies it.
type Runner interface {
	Execute(ctx context.Context, job model.Job, obs research.Observer) (*model.ResearchReport, []model.Step, error)
}

// Config tunes the background processor.
type Config struct {
	// PollInterval is how often the store is scanned for pending jobs.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// Workers is the number of concurrent drain loops.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// PollBatch caps how many pending jobs one scan picks up.
	PollBatch int `yaml:"poll_batch" mapstructure:"poll_batch"`
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		Workers:      2,
		PollBatch:    50,
	}
}

// Processor claims pending jobs and runs them through the pipeline. Jobs
// arrive two ways: Enqueue hands one over directly, and the poll loop sweeps
// the store so jobs submitted out-of-band (or orphaned by a crash before
// they were claimed) are still picked up.
type Processor struct {
	store  store.Store
	runner Runner
	cfg    Config
	queue  *Queue

	mu       sync.Mutex
	enqueued map[string]struct{}
}

// New wires a processor. Zero config fields fall back to defaults.
func New(st store.Store, runner Runner, cfg Config) *Processor {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PollBatch <= 0 {
		cfg.PollBatch = def.PollBatch
	}
	return &Processor{
		store:    st,
		runner:   runner,
		cfg:      cfg,
		queue:    NewQueue(),
		enqueued: make(map[string]struct{}),
	}
}

// Enqueue offers a job ID for immediate processing. Duplicates of a job
// already waiting are dropped; the running-status guard in the store makes
// any that slip through harmless.
func (p *Processor) Enqueue(jobID string) {
	p.mu.Lock()
	if _, ok := p.enqueued[jobID]; ok {
		p.mu.Unlock()
		return
	}
	p.enqueued[jobID] = struct{}{}
	p.mu.Unlock()

	if !p.queue.Enqueue(jobID) {
		p.forget(jobID)
	}
}

func (p *Processor) forget(jobID string) {
	p.mu.Lock()
	delete(p.enqueued, jobID)
	p.mu.Unlock()
}

// Run blocks until ctx is canceled. Shutdown is graceful: the queue stops
// accepting work, workers finish the job they are on, and Run returns once
// every worker has exited.
func (p *Processor) Run(ctx context.Context) error {
	log := zap.L()
	log.Info("processor: starting",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("workers", p.cfg.Workers),
	)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.drain(ctx)
		}()
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.queue.Close()
			wg.Wait()
			log.Info("processor: stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll sweeps the store for pending jobs and queues them.
func (p *Processor) poll(ctx context.Context) {
	jobs, err := p.store.ListPending(ctx, p.cfg.PollBatch)
	if err != nil {
		if !resilience.IsCancellation(err) {
			zap.L().Warn("processor: list pending failed", zap.Error(err))
		}
		return
	}
	for _, j := range jobs {
		p.Enqueue(j.ID)
	}
}

// drain processes queued jobs until the queue is closed and empty.
func (p *Processor) drain(ctx context.Context) {
	for {
		jobID, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		// Do not start another job on shutdown; whatever is still queued
		// is rediscovered by the next poll sweep.
		if ctx.Err() != nil {
			p.forget(jobID)
			return
		}
		p.process(ctx, jobID)
	}
}

// process claims one job and runs it through the pipeline. The pipeline gets
// the live context so shutdown reaches in-flight stages, and the stages decide
// whether to stop. Store writes use a detached context: the step journal and
// the final status update must land even when the run was cut short.
func (p *Processor) process(ctx context.Context, jobID string) {
	defer p.forget(jobID)
	log := zap.L().With(zap.String("job_id", jobID))
	storeCtx := context.WithoutCancel(ctx)

	job, err := p.store.GetJob(storeCtx, jobID)
	if err != nil {
		log.Warn("processor: load job failed", zap.Error(err))
		return
	}
	// The queue can lag the store: re-check before claiming.
	if job.Status != model.JobStatusPending {
		log.Debug("processor: skipping job", zap.String("status", string(job.Status)))
		return
	}

	if err := p.store.MarkRunning(storeCtx, jobID, time.Now().UTC()); err != nil {
		log.Debug("processor: claim lost", zap.Error(err))
		return
	}

	obs := func(step model.Step) error {
		return p.store.AppendStep(storeCtx, jobID, step)
	}

	report, _, err := p.runner.Execute(ctx, *job, obs)
	if err != nil {
		if ferr := p.store.FailJob(storeCtx, jobID, err.Error()); ferr != nil {
			log.Error("processor: fail update lost", zap.Error(ferr))
		}
		log.Warn("processor: job failed", zap.Error(err))
		return
	}

	if cerr := p.store.CompleteJob(storeCtx, jobID, report); cerr != nil {
		log.Error("processor: complete update lost", zap.Error(cerr))
		return
	}
	log.Info("processor: job completed",
		zap.String("signal", report.Signal),
		zap.Float64("confidence", report.Confidence),
	)
}
