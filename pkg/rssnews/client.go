// Package rssnews fetches company headlines from RSS feeds. It is the
// keyless fallback news source when no NewsAPI credential is configured.
package rssnews

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const defaultFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// APIError reports a non-200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rssnews: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Item is one feed entry.
type Item struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// Client fetches feed items for a symbol.
type Client interface {
	Headlines(ctx context.Context, symbol string) ([]Item, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithFeedURL overrides the feed URL template. It must contain one %s verb
// for the symbol.
func WithFeedURL(template string) Option {
	return func(c *httpClient) {
		c.feedURL = template
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
	feedURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an RSS headline client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		feedURL: defaultFeedURL,
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

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

func (c *httpClient) Headlines(ctx context.Context, symbol string) ([]Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rssnews: rate limiter")
	}

	endpoint := fmt.Sprintf(c.feedURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "rssnews: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "rssnews: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// Financial feeds are not reliably UTF-8; decode whatever charset the
	// XML declaration names.
	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "rssnews: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var feed rssFeed
	if err := decoder.Decode(&feed); err != nil {
		return nil, eris.Wrap(err, "rssnews: decode feed")
	}

	items := make([]Item, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		items = append(items, Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			PublishedAt: parsePubDate(it.PubDate),
		})
	}
	return items, nil
}

// parsePubDate tries the date layouts seen in the wild across finance feeds.
func parsePubDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
