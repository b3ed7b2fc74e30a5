// Package yahoo is a client for the public Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// APIError reports a non-200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Chart is the decoded price history for one symbol.
type Chart struct {
	Symbol        string
	Currency      string
	Price         float64
	PrevClose     float64
	ChangePercent float64
	Bars          []Bar
}

// Bar is one daily close.
type Bar struct {
	Date   time.Time
	Close  float64
	Volume int64
}

// Client fetches price charts from Yahoo Finance.
type Client interface {
	Chart(ctx context.Context, symbol string, months int) (*Chart, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Yahoo Finance chart client. The endpoint needs no key
// but throttles aggressively, so requests default to 2/s.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// chartRange maps a month horizon onto the ranges the endpoint accepts.
func chartRange(months int) string {
	switch {
	case months <= 6:
		return "6mo"
	case months <= 12:
		return "1y"
	case months <= 24:
		return "2y"
	default:
		return "5y"
	}
}

func (c *httpClient) Chart(ctx context.Context, symbol string, months int) (*Chart, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "yahoo: rate limiter")
	}

	params := url.Values{
		"range":    {chartRange(months)},
		"interval": {"1d"},
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "yahoo: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; research-agent)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "yahoo: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "yahoo: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					Currency           string  `json:"currency"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					PreviousClose      float64 `json:"chartPreviousClose"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close  []*float64 `json:"close"`
						Volume []*int64   `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "yahoo: unmarshal chart")
	}
	if out.Chart.Error != nil {
		return nil, eris.Errorf("yahoo: chart error %s: %s", out.Chart.Error.Code, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 {
		return nil, eris.Errorf("yahoo: no chart for %s", symbol)
	}

	r := out.Chart.Result[0]
	chart := &Chart{
		Symbol:    r.Meta.Symbol,
		Currency:  r.Meta.Currency,
		Price:     r.Meta.RegularMarketPrice,
		PrevClose: r.Meta.PreviousClose,
	}
	if chart.PrevClose > 0 {
		chart.ChangePercent = (chart.Price - chart.PrevClose) / chart.PrevClose * 100
	}

	if len(r.Indicators.Quote) > 0 {
		quote := r.Indicators.Quote[0]
		for i, ts := range r.Timestamp {
			if i >= len(quote.Close) || quote.Close[i] == nil {
				continue
			}
			bar := Bar{
				Date:  time.Unix(ts, 0).UTC(),
				Close: *quote.Close[i],
			}
			if i < len(quote.Volume) && quote.Volume[i] != nil {
				bar.Volume = *quote.Volume[i]
			}
			chart.Bars = append(chart.Bars, bar)
		}
	}
	return chart, nil
}
