package provider

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/alphavantage"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/newsapi"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/rssnews"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/yahoo"
)

type stubAV struct {
	quote    func(ctx context.Context, symbol string) (*alphavantage.Quote, error)
	daily    func(ctx context.Context, symbol string) ([]alphavantage.PriceBar, error)
	overview func(ctx context.Context, symbol string) (*alphavantage.Overview, error)
}

func (s *stubAV) Quote(ctx context.Context, symbol string) (*alphavantage.Quote, error) {
	return s.quote(ctx, symbol)
}

func (s *stubAV) Daily(ctx context.Context, symbol string) ([]alphavantage.PriceBar, error) {
	return s.daily(ctx, symbol)
}

func (s *stubAV) Overview(ctx context.Context, symbol string) (*alphavantage.Overview, error) {
	return s.overview(ctx, symbol)
}

type stubYahoo struct {
	chart func(ctx context.Context, symbol string, months int) (*yahoo.Chart, error)
}

func (s *stubYahoo) Chart(ctx context.Context, symbol string, months int) (*yahoo.Chart, error) {
	return s.chart(ctx, symbol, months)
}

type stubNewsAPI struct {
	search func(ctx context.Context, req newsapi.SearchRequest) ([]newsapi.Article, error)
}

func (s *stubNewsAPI) Search(ctx context.Context, req newsapi.SearchRequest) ([]newsapi.Article, error) {
	return s.search(ctx, req)
}

type stubRSS struct {
	headlines func(ctx context.Context, symbol string) ([]rssnews.Item, error)
}

func (s *stubRSS) Headlines(ctx context.Context, symbol string) ([]rssnews.Item, error) {
	return s.headlines(ctx, symbol)
}

func TestAlphaVantagePartialSurvivesQuoteFailure(t *testing.T) {
	now := time.Now().UTC()
	av := NewAlphaVantage(&stubAV{
		quote: func(context.Context, string) (*alphavantage.Quote, error) {
			return nil, &alphavantage.APIError{StatusCode: http.StatusTooManyRequests}
		},
		overview: func(context.Context, string) (*alphavantage.Overview, error) {
			return &alphavantage.Overview{Sector: "TECHNOLOGY", PERatio: 35.2, AnalystRating: "Buy"}, nil
		},
		daily: func(context.Context, string) ([]alphavantage.PriceBar, error) {
			return []alphavantage.PriceBar{{Date: now.AddDate(0, 0, -1), Close: 230}}, nil
		},
	})

	partial, err := av.Fetch(context.Background(), "AAPL", 6)
	require.NoError(t, err)
	assert.Zero(t, partial.Price)
	assert.Equal(t, "TECHNOLOGY", partial.Sector)
	assert.Len(t, partial.History, 1)
}

func TestAlphaVantageAllCallsFailKeepsFirstCategory(t *testing.T) {
	av := NewAlphaVantage(&stubAV{
		quote: func(context.Context, string) (*alphavantage.Quote, error) {
			return nil, &alphavantage.APIError{StatusCode: http.StatusUnauthorized}
		},
		overview: func(context.Context, string) (*alphavantage.Overview, error) {
			return nil, &alphavantage.APIError{StatusCode: http.StatusInternalServerError}
		},
		daily: func(context.Context, string) ([]alphavantage.PriceBar, error) {
			return nil, &alphavantage.APIError{StatusCode: http.StatusInternalServerError}
		},
	})

	_, err := av.Fetch(context.Background(), "AAPL", 6)
	require.Error(t, err)
	assert.Equal(t, resilience.CategoryAuth, resilience.Classify(err))
}

func TestAlphaVantageTrimsHistoryToMonths(t *testing.T) {
	now := time.Now().UTC()
	av := NewAlphaVantage(&stubAV{
		quote: func(context.Context, string) (*alphavantage.Quote, error) {
			return &alphavantage.Quote{Symbol: "AAPL", Price: 231.5}, nil
		},
		overview: func(context.Context, string) (*alphavantage.Overview, error) {
			return &alphavantage.Overview{}, nil
		},
		daily: func(context.Context, string) ([]alphavantage.PriceBar, error) {
			return []alphavantage.PriceBar{
				{Date: now.AddDate(0, -12, 0), Close: 180},
				{Date: now.AddDate(0, -3, 0), Close: 210},
				{Date: now.AddDate(0, 0, -1), Close: 231},
			}, nil
		},
	})

	partial, err := av.Fetch(context.Background(), "AAPL", 6)
	require.NoError(t, err)
	require.Len(t, partial.History, 2)
	assert.InDelta(t, 210, partial.History[0].Close, 0.001)
}

func TestYahooFetch(t *testing.T) {
	now := time.Now().UTC()
	y := NewYahoo(&stubYahoo{chart: func(_ context.Context, symbol string, months int) (*yahoo.Chart, error) {
		assert.Equal(t, "AAPL", symbol)
		assert.Equal(t, 6, months)
		return &yahoo.Chart{
			Symbol:        "AAPL",
			Price:         232,
			ChangePercent: 1.1,
			Bars: []yahoo.Bar{
				{Date: now.AddDate(0, -8, 0), Close: 195},
				{Date: now.AddDate(0, -1, 0), Close: 225},
			},
		}, nil
	}})

	partial, err := y.Fetch(context.Background(), "AAPL", 6)
	require.NoError(t, err)
	assert.InDelta(t, 232, partial.Price, 0.001)
	require.Len(t, partial.History, 1)
	assert.InDelta(t, 225, partial.History[0].Close, 0.001)
}

func TestYahooRateLimitCategory(t *testing.T) {
	y := NewYahoo(&stubYahoo{chart: func(context.Context, string, int) (*yahoo.Chart, error) {
		return nil, &yahoo.APIError{StatusCode: http.StatusTooManyRequests}
	}})

	_, err := y.Fetch(context.Background(), "AAPL", 6)
	require.Error(t, err)
	assert.Equal(t, resilience.CategoryRateLimit, resilience.Classify(err))
}

func TestNewsAPISearch(t *testing.T) {
	n := NewNewsAPI(&stubNewsAPI{search: func(_ context.Context, req newsapi.SearchRequest) ([]newsapi.Article, error) {
		assert.Contains(t, req.Query, `"Apple Inc."`)
		assert.Contains(t, req.Query, `"earnings"`)
		assert.False(t, req.From.IsZero())
		return []newsapi.Article{
			{Source: "Reuters", Title: "Apple beats estimates", URL: "https://n/1", PublishedAt: time.Now()},
			{Source: "Bloomberg", Title: "Apple faces antitrust probe", URL: "https://n/2", PublishedAt: time.Now()},
		}, nil
	}})

	articles, err := n.Search(context.Background(), NewsQuery{
		Symbol:  "AAPL",
		Company: "Apple Inc.",
		Topics:  []string{"earnings"},
		Months:  6,
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Greater(t, articles[0].Sentiment, 0.0)
	assert.Less(t, articles[1].Sentiment, 0.0)
}

func TestNewsAPIAuthCategory(t *testing.T) {
	n := NewNewsAPI(&stubNewsAPI{search: func(context.Context, newsapi.SearchRequest) ([]newsapi.Article, error) {
		return nil, &newsapi.APIError{StatusCode: http.StatusUnauthorized}
	}})

	_, err := n.Search(context.Background(), NewsQuery{Symbol: "AAPL"})
	require.Error(t, err)
	assert.Equal(t, resilience.CategoryAuth, resilience.Classify(err))
}

func TestRSSSearchUsesSymbolAndCutoff(t *testing.T) {
	now := time.Now().UTC()
	r := NewRSS(&stubRSS{headlines: func(_ context.Context, symbol string) ([]rssnews.Item, error) {
		assert.Equal(t, "AAPL", symbol)
		return []rssnews.Item{
			{Title: "Apple shares surge", Link: "https://n/1", PublishedAt: now.AddDate(0, 0, -2)},
			{Title: "Old story", Link: "https://n/2", PublishedAt: now.AddDate(0, -9, 0)},
			{Title: "Undated story", Link: "https://n/3"},
		}, nil
	}})

	articles, err := r.Search(context.Background(), NewsQuery{Symbol: "AAPL", Company: "Apple Inc.", Months: 6})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Apple shares surge", articles[0].Title)
	assert.Equal(t, "Undated story", articles[1].Title)
}
