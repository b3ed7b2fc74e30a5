package provider

import (
	"context"
	"errors"
	"time"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/yahoo"
)

// Yahoo adapts the Yahoo Finance chart client to the Financial interface.
type Yahoo struct {
	client yahoo.Client
}

// NewYahoo wraps a Yahoo Finance client.
func NewYahoo(client yahoo.Client) *Yahoo {
	return &Yahoo{client: client}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) Fetch(ctx context.Context, symbol string, months int) (*FinancialPartial, error) {
	chart, err := y.client.Chart(ctx, symbol, months)
	if err != nil {
		var apiErr *yahoo.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.FromHTTPStatus(err, apiErr.StatusCode)
		}
		return nil, err
	}

	partial := &FinancialPartial{
		Price:         chart.Price,
		ChangePercent: chart.ChangePercent,
	}
	// The chart range rounds up to the next preset, so trim to the horizon
	// actually asked for.
	cutoff := time.Now().UTC().AddDate(0, -months, 0)
	for _, b := range chart.Bars {
		if b.Date.Before(cutoff) {
			continue
		}
		partial.History = append(partial.History, model.PricePoint{
			Date:   b.Date,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return partial, nil
}
