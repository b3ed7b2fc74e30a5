package research

import (
	"context"
	"fmt"
	"sort"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/provider"
)

// Trend labels produced by ClassifyTrend.
const (
	TrendStrongUp     = "Strong Uptrend"
	TrendUp           = "Uptrend"
	TrendNeutral      = "Neutral"
	TrendDown         = "Downtrend"
	TrendStrongDown   = "Strong Downtrend"
	TrendInsufficient = "Insufficient Data"
)

// trendMinPoints is the minimum price history required to classify a trend.
const trendMinPoints = 10

// financialAccumulator merges provider partials into one dataset. Merge is the
// only mutation entry point and is always invoked under the pool runner's lock.
type financialAccumulator struct {
	data       model.FinancialData
	maxHistory int
}

func newFinancialAccumulator(symbol string, maxHistory int) *financialAccumulator {
	return &financialAccumulator{
		data:       model.FinancialData{Symbol: symbol},
		maxHistory: maxHistory,
	}
}

// Merge applies first-writer-wins for scalar fields and appends history up to
// the accumulator's ceiling.
func (a *financialAccumulator) Merge(p *provider.FinancialPartial) {
	if p == nil {
		return
	}
	d := &a.data

	if d.Price == 0 {
		d.Price = p.Price
	}
	if d.ChangePercent == 0 {
		d.ChangePercent = p.ChangePercent
	}
	if d.MarketCap == 0 {
		d.MarketCap = p.MarketCap
	}
	if d.PERatio == 0 {
		d.PERatio = p.PERatio
	}
	if d.EPS == 0 {
		d.EPS = p.EPS
	}
	if d.DividendYield == 0 {
		d.DividendYield = p.DividendYield
	}
	if d.AnalystRating == "" {
		d.AnalystRating = p.AnalystRating
	}
	if d.Sector == "" {
		d.Sector = p.Sector
	}

	if room := a.maxHistory - len(d.History); room > 0 {
		points := p.History
		if len(points) > room {
			points = points[:room]
		}
		d.History = append(d.History, points...)
	}
}

// GatherFinancial fans the financial providers out through the pool runner and
// post-processes the merged dataset with trend classification. Provider
// failures are tolerated; an empty provider set yields an empty dataset.
func GatherFinancial(ctx context.Context, rec *Recorder, providers []provider.Financial, cfg GatherConfig, symbol string, plan *model.ResearchPlan) *model.FinancialData {
	acc := newFinancialAccumulator(symbol, cfg.MaxPricePoints)

	if len(providers) == 0 {
		rec.Step("gather financial data", "no financial providers configured")
		data := acc.data
		data.Trend = ClassifyTrend(data.History)
		return &data
	}

	tasks := make([]Task[*provider.FinancialPartial], 0, len(providers))
	for _, p := range providers {
		tasks = append(tasks, Task[*provider.FinancialPartial]{
			Provider: p.Name(),
			Action:   "fetch financial data",
			Fetch: func(ctx context.Context) (*provider.FinancialPartial, error) {
				return p.Fetch(ctx, symbol, plan.TimeframeMonths)
			},
		})
	}

	succeeded := RunPool(ctx, rec, cfg.Concurrency, tasks, acc.Merge)

	data := acc.data
	data.Sources = succeeded

	// Chronological order regardless of which provider's history merged first.
	sort.Slice(data.History, func(i, j int) bool {
		return data.History[i].Date.Before(data.History[j].Date)
	})

	data.Trend = ClassifyTrend(data.History)
	if ctx.Err() == nil {
		rec.Step("classify trend", fmt.Sprintf("%s from %d price points", data.Trend, len(data.History)))
	}
	return &data
}

// ClassifyTrend compares the average of the 5 most recent closes against the
// average of the 5 before them. Thresholds: 2% for a trend, 5% for a strong
// trend. Requires at least 10 chronologically ordered points.
func ClassifyTrend(history []model.PricePoint) string {
	if len(history) < trendMinPoints {
		return TrendInsufficient
	}

	recent := avgClose(history[len(history)-5:])
	prior := avgClose(history[len(history)-10 : len(history)-5])
	if prior == 0 {
		return TrendInsufficient
	}

	change := (recent - prior) / prior * 100
	switch {
	case change >= 5:
		return TrendStrongUp
	case change >= 2:
		return TrendUp
	case change <= -5:
		return TrendStrongDown
	case change <= -2:
		return TrendDown
	default:
		return TrendNeutral
	}
}

func avgClose(points []model.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Close
	}
	return sum / float64(len(points))
}
