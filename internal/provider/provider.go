// Package provider defines the capability interfaces the gather stages consume.
// Concrete providers adapt the HTTP clients under pkg/ to these interfaces and
// are selected at startup from configuration.
package provider

import (
	"context"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

// FinancialPartial is the slice of the financial dataset a single provider can
// contribute. Zero-valued fields mean the provider has nothing for that field;
// the pool runner's merge policy keeps the first populated value.
type FinancialPartial struct {
	Price         float64
	ChangePercent float64
	MarketCap     float64
	PERatio       float64
	EPS           float64
	DividendYield float64
	AnalystRating string
	Sector        string
	History       []model.PricePoint
}

// Financial is an interchangeable financial data source. months bounds how far
// back history should reach. Implementations classify their own failures via
// resilience.ProviderError where they can.
type Financial interface {
	Name() string
	Fetch(ctx context.Context, symbol string, months int) (*FinancialPartial, error)
}

// NewsQuery carries what a news provider needs to search for coverage. API
// providers key on the company name, feed providers on the ticker symbol.
type NewsQuery struct {
	Symbol  string
	Company string
	Topics  []string
	Months  int
}

// Query returns the preferred free-text search term.
func (q NewsQuery) Query() string {
	if q.Company != "" {
		return q.Company
	}
	return q.Symbol
}

// News is an interchangeable news source.
type News interface {
	Name() string
	Search(ctx context.Context, q NewsQuery) ([]model.Article, error)
}
