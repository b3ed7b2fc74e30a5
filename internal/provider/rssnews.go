package provider

import (
	"context"
	"errors"
	"time"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/rssnews"
)

// RSS adapts the RSS headline client to the News interface. Feeds are keyed
// by ticker symbol, not company name.
type RSS struct {
	client rssnews.Client
}

// NewRSS wraps an RSS headline client.
func NewRSS(client rssnews.Client) *RSS {
	return &RSS{client: client}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Search(ctx context.Context, q NewsQuery) ([]model.Article, error) {
	items, err := r.client.Headlines(ctx, q.Symbol)
	if err != nil {
		var apiErr *rssnews.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.FromHTTPStatus(err, apiErr.StatusCode)
		}
		return nil, err
	}

	var cutoff time.Time
	if q.Months > 0 {
		cutoff = time.Now().UTC().AddDate(0, -q.Months, 0)
	}

	articles := make([]model.Article, 0, len(items))
	for _, it := range items {
		if !cutoff.IsZero() && !it.PublishedAt.IsZero() && it.PublishedAt.Before(cutoff) {
			continue
		}
		articles = append(articles, model.Article{
			Title:       it.Title,
			Source:      "rss",
			URL:         it.Link,
			Summary:     it.Description,
			PublishedAt: it.PublishedAt,
			Sentiment:   ScoreSentiment(it.Title + " " + it.Description),
		})
	}
	return articles, nil
}
