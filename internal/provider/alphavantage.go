package provider

import (
	"context"
	"errors"
	"time"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/alphavantage"
)

// AlphaVantage adapts the Alpha Vantage client to the Financial interface.
// One Fetch issues up to three API calls (quote, fundamentals, history) and
// returns a partial as long as any of them lands.
type AlphaVantage struct {
	client alphavantage.Client
}

// NewAlphaVantage wraps an Alpha Vantage client.
func NewAlphaVantage(client alphavantage.Client) *AlphaVantage {
	return &AlphaVantage{client: client}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

func (a *AlphaVantage) Fetch(ctx context.Context, symbol string, months int) (*FinancialPartial, error) {
	partial := &FinancialPartial{}
	var got bool
	var firstErr error

	keep := func(err error) {
		if firstErr == nil {
			firstErr = classifyAlphaVantage(err)
		}
	}

	if q, err := a.client.Quote(ctx, symbol); err != nil {
		keep(err)
	} else {
		partial.Price = q.Price
		partial.ChangePercent = q.ChangePercent
		got = true
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if o, err := a.client.Overview(ctx, symbol); err != nil {
		keep(err)
	} else {
		partial.MarketCap = o.MarketCap
		partial.PERatio = o.PERatio
		partial.EPS = o.EPS
		partial.DividendYield = o.DividendYield
		partial.AnalystRating = o.AnalystRating
		partial.Sector = o.Sector
		got = true
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if bars, err := a.client.Daily(ctx, symbol); err != nil {
		keep(err)
	} else {
		cutoff := time.Now().UTC().AddDate(0, -months, 0)
		for _, b := range bars {
			if b.Date.Before(cutoff) {
				continue
			}
			partial.History = append(partial.History, model.PricePoint{
				Date:   b.Date,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}
		got = got || len(partial.History) > 0
	}

	if !got {
		return nil, firstErr
	}
	return partial, nil
}

func classifyAlphaVantage(err error) error {
	var apiErr *alphavantage.APIError
	if errors.As(err, &apiErr) {
		return resilience.FromHTTPStatus(err, apiErr.StatusCode)
	}
	return err
}
