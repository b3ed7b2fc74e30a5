// Package alphavantage is a minimal Alpha Vantage market data client covering
// quotes, daily price history, and company fundamentals.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.alphavantage.co"

// APIError reports a non-200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphavantage: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Quote is the latest price snapshot for a symbol.
type Quote struct {
	Symbol        string
	Price         float64
	ChangePercent float64
}

// PriceBar is one daily close.
type PriceBar struct {
	Date   time.Time
	Close  float64
	Volume int64
}

// Overview holds company fundamentals.
type Overview struct {
	Symbol        string
	Sector        string
	MarketCap     float64
	PERatio       float64
	EPS           float64
	DividendYield float64
	AnalystRating string
}

// Client fetches market data from Alpha Vantage.
type Client interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	Daily(ctx context.Context, symbol string) ([]PriceBar, error)
	Overview(ctx context.Context, symbol string) (*Overview, error)
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
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Alpha Vantage client. The default rate limit matches
// the free tier: 5 requests per minute.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "alphavantage: rate limiter")
	}

	params.Set("apikey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "alphavantage: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "alphavantage: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "alphavantage: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// Alpha Vantage reports throttling and bad symbols as 200s with an
	// envelope message instead of a status code.
	var envelope struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Note != "" || envelope.Information != "" {
			return nil, eris.Errorf("alphavantage: rate limit: %s%s", envelope.Note, envelope.Information)
		}
		if envelope.ErrorMessage != "" {
			return nil, eris.Errorf("alphavantage: api error: %s", envelope.ErrorMessage)
		}
	}
	return body, nil
}

func (c *httpClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	body, err := c.get(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		GlobalQuote struct {
			Symbol        string `json:"01. symbol"`
			Price         string `json:"05. price"`
			ChangePercent string `json:"10. change percent"`
		} `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "alphavantage: unmarshal quote")
	}
	if out.GlobalQuote.Symbol == "" {
		return nil, eris.Errorf("alphavantage: no quote for %s", symbol)
	}

	q := &Quote{Symbol: out.GlobalQuote.Symbol}
	q.Price, _ = strconv.ParseFloat(out.GlobalQuote.Price, 64)
	q.ChangePercent, _ = strconv.ParseFloat(strings.TrimSuffix(out.GlobalQuote.ChangePercent, "%"), 64)
	return q, nil
}

func (c *httpClient) Daily(ctx context.Context, symbol string) ([]PriceBar, error) {
	body, err := c.get(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {"full"},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Series map[string]struct {
			Close  string `json:"4. close"`
			Volume string `json:"5. volume"`
		} `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "alphavantage: unmarshal daily series")
	}
	if len(out.Series) == 0 {
		return nil, eris.Errorf("alphavantage: no daily series for %s", symbol)
	}

	bars := make([]PriceBar, 0, len(out.Series))
	for date, bar := range out.Series {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		var pb PriceBar
		pb.Date = d
		pb.Close, _ = strconv.ParseFloat(bar.Close, 64)
		pb.Volume, _ = strconv.ParseInt(bar.Volume, 10, 64)
		bars = append(bars, pb)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (c *httpClient) Overview(ctx context.Context, symbol string) (*Overview, error) {
	body, err := c.get(ctx, url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {symbol},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Symbol                    string `json:"Symbol"`
		Sector                    string `json:"Sector"`
		MarketCapitalization      string `json:"MarketCapitalization"`
		PERatio                   string `json:"PERatio"`
		EPS                       string `json:"EPS"`
		DividendYield             string `json:"DividendYield"`
		AnalystRatingStrongBuy    string `json:"AnalystRatingStrongBuy"`
		AnalystRatingBuy          string `json:"AnalystRatingBuy"`
		AnalystRatingHold         string `json:"AnalystRatingHold"`
		AnalystRatingSell         string `json:"AnalystRatingSell"`
		AnalystRatingStrongSell   string `json:"AnalystRatingStrongSell"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "alphavantage: unmarshal overview")
	}
	if out.Symbol == "" {
		return nil, eris.Errorf("alphavantage: no overview for %s", symbol)
	}

	o := &Overview{Symbol: out.Symbol, Sector: out.Sector}
	o.MarketCap, _ = strconv.ParseFloat(out.MarketCapitalization, 64)
	o.PERatio, _ = strconv.ParseFloat(out.PERatio, 64)
	o.EPS, _ = strconv.ParseFloat(out.EPS, 64)
	o.DividendYield, _ = strconv.ParseFloat(out.DividendYield, 64)
	o.AnalystRating = ratingLabel(
		atoiOrZero(out.AnalystRatingStrongBuy),
		atoiOrZero(out.AnalystRatingBuy),
		atoiOrZero(out.AnalystRatingHold),
		atoiOrZero(out.AnalystRatingSell),
		atoiOrZero(out.AnalystRatingStrongSell),
	)
	return o, nil
}

// ratingLabel condenses analyst rating counts to the label with the most
// votes. Ties break toward the more cautious label.
func ratingLabel(strongBuy, buy, hold, sell, strongSell int) string {
	labels := []struct {
		name  string
		count int
	}{
		{"Strong Buy", strongBuy},
		{"Buy", buy},
		{"Hold", hold},
		{"Sell", sell},
		{"Strong Sell", strongSell},
	}
	best := ""
	bestCount := 0
	for _, l := range labels {
		if l.count >= bestCount && l.count > 0 {
			best = l.name
			bestCount = l.count
		}
	}
	return best
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
