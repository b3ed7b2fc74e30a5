package research

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/provider"
)

// GatherConfig tunes the two gather stages.
type GatherConfig struct {
	// Concurrency caps how many providers run at once within one gather stage.
	Concurrency int
	// MaxPricePoints is the hard ceiling on accumulated price history.
	MaxPricePoints int
	// MaxArticles is the hard ceiling on accumulated news articles.
	MaxArticles int
}

// DefaultGatherConfig returns the gather defaults.
func DefaultGatherConfig() GatherConfig {
	return GatherConfig{
		Concurrency:    DefaultConcurrency,
		MaxPricePoints: 500,
		MaxArticles:    50,
	}
}

// Orchestrator sequences the pipeline stages for one job execution: plan,
// then both gathers in parallel, then synthesize.
// One step counter and one cancellation signal thread through all stages.
type Orchestrator struct {
	llm       TextCompleter
	financial []provider.Financial
	news      []provider.News
	cfg       GatherConfig
}

// NewOrchestrator wires the orchestrator with its capabilities. llm may be
// nil; each stage then uses its deterministic fallback.
func NewOrchestrator(llm TextCompleter, financial []provider.Financial, news []provider.News, cfg GatherConfig) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	def := DefaultGatherConfig()
	if cfg.MaxPricePoints <= 0 {
		cfg.MaxPricePoints = def.MaxPricePoints
	}
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = def.MaxArticles
	}
	return &Orchestrator{llm: llm, financial: financial, news: news, cfg: cfg}
}

// Execute runs the full pipeline for one job. The observer is invoked once per
// recorded step. The returned steps are the complete journal regardless of
// outcome; on error the last step is the recorded failure.
func (o *Orchestrator) Execute(ctx context.Context, job model.Job, obs Observer) (report *model.ResearchReport, steps []model.Step, err error) {
	log := zap.L().With(zap.String("job_id", job.ID), zap.String("symbol", job.Symbol))
	journal := NewJournal(0, obs)

	// Anything escaping a stage is caught once here, recorded as one final
	// failed step, and returned to the processor.
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("research: stage panic: %v", r)
			journal.Stage("orchestrator").Fail("pipeline aborted", "", err, 0)
			steps = journal.Steps()
			report = nil
			log.Error("research: pipeline panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	log.Info("research: pipeline starting", zap.String("depth", string(job.Depth)))

	plan := PlanStage(ctx, o.llm, journal.Stage("plan"), job)
	if ctxErr := o.checkCanceled(ctx, journal); ctxErr != nil {
		return nil, journal.Steps(), ctxErr
	}

	// Both gather stages share the journal, so their step numbers continue
	// from the plan stage's count and interleave by completion order.
	var (
		fin  *model.FinancialData
		news *model.NewsData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fin = GatherFinancial(gctx, journal.Stage("gather-financial"), o.financial, o.cfg, job.Symbol, plan)
		return nil
	})
	g.Go(func() error {
		news = GatherNews(gctx, journal.Stage("gather-news"), o.news, o.cfg, job, plan)
		return nil
	})
	_ = g.Wait()

	if ctxErr := o.checkCanceled(ctx, journal); ctxErr != nil {
		return nil, journal.Steps(), ctxErr
	}

	report = Synthesize(ctx, o.llm, journal.Stage("synthesize"), job, plan, fin, news, journal.Steps())

	steps = journal.Steps()
	report.Steps = SummarizeSteps(steps)

	log.Info("research: pipeline complete",
		zap.String("signal", report.Signal),
		zap.Float64("confidence", report.Confidence),
		zap.Int("steps", report.Steps.Total),
		zap.Int("failed_steps", report.Steps.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, steps, nil
}

// checkCanceled returns the cancellation error for ctx, if any, without
// recording it as an application failure.
func (o *Orchestrator) checkCanceled(ctx context.Context, journal *Journal) error {
	if ctx.Err() == nil {
		return nil
	}
	return eris.Wrap(ctx.Err(), fmt.Sprintf("research: canceled after step %d", journal.Counter().Current()))
}
