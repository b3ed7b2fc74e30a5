package research

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/provider"
)

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name   string
		closes []float64
		want   string
	}{
		{"strong uptrend", append(repeat(100, 5), repeat(108, 5)...), TrendStrongUp},
		{"uptrend", append(repeat(100, 5), repeat(103, 5)...), TrendUp},
		{"neutral", append(repeat(100, 5), repeat(101, 5)...), TrendNeutral},
		{"downtrend", append(repeat(100, 5), repeat(97, 5)...), TrendDown},
		{"strong downtrend", append(repeat(100, 5), repeat(92, 5)...), TrendStrongDown},
		{"too few points", repeat(100, 9), TrendInsufficient},
		{"empty", nil, TrendInsufficient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTrend(historyOf(tc.closes...)))
		})
	}
}

func TestFinancialAccumulatorFirstWriterWins(t *testing.T) {
	acc := newFinancialAccumulator("AAPL", 500)

	acc.Merge(&provider.FinancialPartial{Price: 190.5, AnalystRating: "Buy"})
	acc.Merge(&provider.FinancialPartial{Price: 191.2, AnalystRating: "Hold", PERatio: 29.3})

	assert.Equal(t, 190.5, acc.data.Price)
	assert.Equal(t, "Buy", acc.data.AnalystRating)
	// A field the first writer left empty is taken from the second.
	assert.Equal(t, 29.3, acc.data.PERatio)
}

func TestFinancialAccumulatorHistoryCeiling(t *testing.T) {
	acc := newFinancialAccumulator("AAPL", 8)

	acc.Merge(&provider.FinancialPartial{History: historyOf(repeat(100, 6)...)})
	acc.Merge(&provider.FinancialPartial{History: historyOf(repeat(200, 6)...)})
	acc.Merge(&provider.FinancialPartial{History: historyOf(repeat(300, 6)...)})

	assert.Len(t, acc.data.History, 8)
}

func TestGatherFinancialMergesAndClassifies(t *testing.T) {
	j := NewJournal(0, nil)
	plan := DefaultPlan(model.DepthQuick, "AAPL")

	providers := []provider.Financial{
		&stubFinancial{name: "alphavantage", fetch: func(context.Context, string, int) (*provider.FinancialPartial, error) {
			return &provider.FinancialPartial{
				Price:   190,
				History: historyOf(append(repeat(100, 5), repeat(108, 5)...)...),
			}, nil
		}},
		&stubFinancial{name: "yahoo", fetch: func(context.Context, string, int) (*provider.FinancialPartial, error) {
			return nil, eris.New("down for maintenance")
		}},
	}

	data := GatherFinancial(context.Background(), j.Stage("gather-financial"), providers, DefaultGatherConfig(), "AAPL", plan)

	require.NotNil(t, data)
	assert.Equal(t, "AAPL", data.Symbol)
	assert.Equal(t, 190.0, data.Price)
	assert.Equal(t, TrendStrongUp, data.Trend)
	assert.Equal(t, []string{"alphavantage"}, data.Sources)

	steps := j.Steps()
	// One step per provider plus the trend classification step.
	require.Len(t, steps, 3)
	var failed int
	for _, s := range steps {
		if !s.Success {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestGatherFinancialNoProviders(t *testing.T) {
	j := NewJournal(0, nil)
	plan := DefaultPlan(model.DepthQuick, "AAPL")

	data := GatherFinancial(context.Background(), j.Stage("gather-financial"), nil, DefaultGatherConfig(), "AAPL", plan)

	require.NotNil(t, data)
	assert.Empty(t, data.Sources)
	assert.Equal(t, TrendInsufficient, data.Trend)
	assert.Len(t, j.Steps(), 1)
}
