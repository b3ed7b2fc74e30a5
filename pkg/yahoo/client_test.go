package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithRateLimit(rate.Inf, 1))
}

func TestChart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "6mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		_, _ = w.Write([]byte(`{"chart": {"result": [{
			"meta": {"symbol": "AAPL", "currency": "USD", "regularMarketPrice": 232.0, "chartPreviousClose": 200.0},
			"timestamp": [1755000000, 1755086400, 1755172800],
			"indicators": {"quote": [{"close": [228.5, null, 232.0], "volume": [1000, null, 1200]}]}
		}], "error": null}}`))
	})

	chart, err := c.Chart(context.Background(), "AAPL", 6)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", chart.Symbol)
	assert.InDelta(t, 232.0, chart.Price, 0.001)
	assert.InDelta(t, 16.0, chart.ChangePercent, 0.001)

	// Null closes are skipped.
	require.Len(t, chart.Bars, 2)
	assert.InDelta(t, 228.5, chart.Bars[0].Close, 0.001)
	assert.Equal(t, int64(1200), chart.Bars[1].Volume)
}

func TestChartRangeMapping(t *testing.T) {
	assert.Equal(t, "6mo", chartRange(6))
	assert.Equal(t, "1y", chartRange(12))
	assert.Equal(t, "2y", chartRange(24))
	assert.Equal(t, "5y", chartRange(60))
}

func TestChartAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`))
	})

	_, err := c.Chart(context.Background(), "NOPE", 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestChartHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Chart(context.Background(), "AAPL", 6)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}
