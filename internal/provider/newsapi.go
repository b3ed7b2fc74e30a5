package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/resilience"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/newsapi"
)

// NewsAPI adapts the NewsAPI.org client to the News interface.
type NewsAPI struct {
	client   newsapi.Client
	pageSize int
}

// NewNewsAPI wraps a NewsAPI client.
func NewNewsAPI(client newsapi.Client) *NewsAPI {
	return &NewsAPI{client: client, pageSize: 50}
}

func (n *NewsAPI) Name() string { return "newsapi" }

func (n *NewsAPI) Search(ctx context.Context, q NewsQuery) ([]model.Article, error) {
	req := newsapi.SearchRequest{
		Query:    buildNewsAPIQuery(q),
		PageSize: n.pageSize,
	}
	if q.Months > 0 {
		req.From = time.Now().UTC().AddDate(0, -q.Months, 0)
	}

	hits, err := n.client.Search(ctx, req)
	if err != nil {
		var apiErr *newsapi.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.FromHTTPStatus(err, apiErr.StatusCode)
		}
		return nil, err
	}

	articles := make([]model.Article, 0, len(hits))
	for _, h := range hits {
		articles = append(articles, model.Article{
			Title:       h.Title,
			Source:      h.Source,
			URL:         h.URL,
			Summary:     h.Description,
			PublishedAt: h.PublishedAt,
			Sentiment:   ScoreSentiment(h.Title + " " + h.Description),
		})
	}
	return articles, nil
}

// buildNewsAPIQuery narrows the company search by the plan's topics when any
// are present.
func buildNewsAPIQuery(q NewsQuery) string {
	base := q.Query()
	if len(q.Topics) == 0 {
		return base
	}
	quoted := make([]string, 0, len(q.Topics))
	for _, t := range q.Topics {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("%q AND (%s)", base, strings.Join(quoted, " OR "))
}
