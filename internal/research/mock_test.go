package research

import (
	"context"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/provider"
)

// stubFinancial is a function-backed provider.Financial for tests.
type stubFinancial struct {
	name  string
	fetch func(ctx context.Context, symbol string, months int) (*provider.FinancialPartial, error)
}

func (s *stubFinancial) Name() string { return s.name }

func (s *stubFinancial) Fetch(ctx context.Context, symbol string, months int) (*provider.FinancialPartial, error) {
	return s.fetch(ctx, symbol, months)
}

// stubNews is a function-backed provider.News for tests.
type stubNews struct {
	name   string
	search func(ctx context.Context, q provider.NewsQuery) ([]model.Article, error)
}

func (s *stubNews) Name() string { return s.name }

func (s *stubNews) Search(ctx context.Context, q provider.NewsQuery) ([]model.Article, error) {
	return s.search(ctx, q)
}

// stubLLM is a function-backed TextCompleter for tests.
type stubLLM struct {
	complete func(ctx context.Context, system, user string) (string, error)
}

func (s *stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return s.complete(ctx, system, user)
}

func historyOf(closes ...float64) []model.PricePoint {
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{Close: c}
	}
	return points
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
