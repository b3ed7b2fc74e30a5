package research

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/provider"
)

// Sentiment labels produced by SentimentLabel.
const (
	SentimentVeryPositive = "Very Positive"
	SentimentPositive     = "Positive"
	SentimentNeutral      = "Neutral"
	SentimentNegative     = "Negative"
	SentimentVeryNegative = "Very Negative"
)

const maxThemes = 5

// themeKeywords maps theme names to the keywords that vote for them in
// article titles and summaries.
var themeKeywords = map[string][]string{
	"Earnings":       {"earnings", "revenue", "profit", "quarter", "guidance"},
	"Products":       {"launch", "product", "release", "unveil"},
	"Leadership":     {"ceo", "executive", "board", "appoint", "resign"},
	"Regulation":     {"regulator", "lawsuit", "antitrust", "investigation", "fine"},
	"M&A":            {"acquisition", "merger", "acquire", "takeover"},
	"Market Moves":   {"rally", "selloff", "surge", "plunge", "record high"},
	"Technology":     {"ai", "artificial intelligence", "chip", "innovation"},
	"Capital Return": {"dividend", "buyback", "repurchase"},
}

// newsAccumulator merges provider article lists into one dataset. Merge is the
// only mutation entry point and is always invoked under the pool runner's lock.
type newsAccumulator struct {
	data        model.NewsData
	maxArticles int
	seen        map[string]bool
}

func newNewsAccumulator(maxArticles int) *newsAccumulator {
	return &newsAccumulator{
		maxArticles: maxArticles,
		seen:        make(map[string]bool),
	}
}

// Merge unions articles up to the ceiling, deduplicating by URL (or title when
// the URL is empty).
func (a *newsAccumulator) Merge(articles []model.Article) {
	for _, art := range articles {
		if len(a.data.Articles) >= a.maxArticles {
			return
		}
		key := art.URL
		if key == "" {
			key = strings.ToLower(art.Title)
		}
		if key == "" || a.seen[key] {
			continue
		}
		a.seen[key] = true
		a.data.Articles = append(a.data.Articles, art)
	}
}

// GatherNews fans the news providers out through the pool runner and
// post-processes the merged articles with sentiment aggregation and theme
// extraction. Provider failures are tolerated.
func GatherNews(ctx context.Context, rec *Recorder, providers []provider.News, cfg GatherConfig, job model.Job, plan *model.ResearchPlan) *model.NewsData {
	acc := newNewsAccumulator(cfg.MaxArticles)

	query := provider.NewsQuery{
		Symbol:  job.Symbol,
		Company: job.CompanyName,
		Topics:  plan.SearchTopics,
		Months:  plan.TimeframeMonths,
	}

	if len(providers) == 0 {
		rec.Step("gather news", "no news providers configured")
		data := acc.data
		data.Sentiment, data.SentimentLabel = AggregateSentiment(data.Articles, time.Now().UTC())
		return &data
	}

	tasks := make([]Task[[]model.Article], 0, len(providers))
	for _, p := range providers {
		tasks = append(tasks, Task[[]model.Article]{
			Provider: p.Name(),
			Action:   "search news",
			Fetch: func(ctx context.Context) ([]model.Article, error) {
				return p.Search(ctx, query)
			},
		})
	}

	succeeded := RunPool(ctx, rec, cfg.Concurrency, tasks, acc.Merge)

	data := acc.data
	data.Sources = succeeded
	data.Sentiment, data.SentimentLabel = AggregateSentiment(data.Articles, time.Now().UTC())
	data.Themes = ExtractThemes(data.Articles)

	if ctx.Err() == nil {
		rec.Step("aggregate sentiment",
			fmt.Sprintf("%s (%.2f) across %d articles", data.SentimentLabel, data.Sentiment, len(data.Articles)))
	}
	return &data
}

// AggregateSentiment computes the time-decayed sentiment aggregate:
// weight = max(0.1, 1 - daysAgo/30), aggregate = sum(score*weight)/sum(weight).
func AggregateSentiment(articles []model.Article, now time.Time) (float64, string) {
	if len(articles) == 0 {
		return 0, SentimentNeutral
	}

	var weightedSum, weightTotal float64
	for _, a := range articles {
		daysAgo := now.Sub(a.PublishedAt).Hours() / 24
		if daysAgo < 0 {
			daysAgo = 0
		}
		weight := 1 - daysAgo/30
		if weight < 0.1 {
			weight = 0.1
		}
		weightedSum += a.Sentiment * weight
		weightTotal += weight
	}

	agg := weightedSum / weightTotal
	return agg, SentimentLabel(agg)
}

// SentimentLabel maps an aggregate score to its label, with thresholds at
// 0.1 and 0.3 either side of zero.
func SentimentLabel(score float64) string {
	switch {
	case score >= 0.3:
		return SentimentVeryPositive
	case score >= 0.1:
		return SentimentPositive
	case score <= -0.3:
		return SentimentVeryNegative
	case score <= -0.1:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ExtractThemes matches theme keywords against article titles and summaries
// and returns the top themes by article frequency.
func ExtractThemes(articles []model.Article) []string {
	counts := make(map[string]int)
	for _, a := range articles {
		text := strings.ToLower(a.Title + " " + a.Summary)
		for theme, keywords := range themeKeywords {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					counts[theme]++
					break
				}
			}
		}
	}

	themes := make([]string, 0, len(counts))
	for theme := range counts {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if counts[themes[i]] != counts[themes[j]] {
			return counts[themes[i]] > counts[themes[j]]
		}
		return themes[i] < themes[j]
	})

	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes
}
