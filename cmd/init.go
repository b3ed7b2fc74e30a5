package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/provider"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/research"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/store"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/alphavantage"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/claude"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/newsapi"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/rssnews"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/pkg/yahoo"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "research.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initOrchestrator builds the research orchestrator from configuration.
// Providers without credentials are simply left out; the keyless Yahoo and
// RSS providers keep the pipeline usable with no API keys at all.
func initOrchestrator() (*research.Orchestrator, error) {
	var financial []provider.Financial
	var news []provider.News

	if cfg.AlphaVantage.Key != "" {
		av := alphavantage.NewClient(cfg.AlphaVantage.Key,
			alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
		)
		financial = append(financial, provider.NewAlphaVantage(av))
		zap.L().Info("alphavantage provider enabled")
	} else {
		zap.L().Debug("RESEARCH_ALPHAVANTAGE_KEY not set, alphavantage provider disabled")
	}

	if cfg.Yahoo.Enabled {
		yh := yahoo.NewClient(yahoo.WithBaseURL(cfg.Yahoo.BaseURL))
		financial = append(financial, provider.NewYahoo(yh))
		zap.L().Info("yahoo provider enabled")
	}

	if cfg.NewsAPI.Key != "" {
		na := newsapi.NewClient(cfg.NewsAPI.Key, newsapi.WithBaseURL(cfg.NewsAPI.BaseURL))
		news = append(news, provider.NewNewsAPI(na))
		zap.L().Info("newsapi provider enabled")
	} else {
		zap.L().Debug("RESEARCH_NEWSAPI_KEY not set, newsapi provider disabled")
	}

	if cfg.RSS.Enabled {
		rss := rssnews.NewClient(rssnews.WithFeedURL(cfg.RSS.FeedURL))
		news = append(news, provider.NewRSS(rss))
		zap.L().Info("rss provider enabled")
	}

	if len(financial) == 0 && len(news) == 0 {
		return nil, eris.New("no data providers configured")
	}

	var llm research.TextCompleter
	if cfg.Anthropic.Key != "" {
		llm = claude.NewClient(cfg.Anthropic.Key,
			claude.WithModel(cfg.Anthropic.Model),
			claude.WithMaxTokens(cfg.Anthropic.MaxTokens),
		)
		zap.L().Info("claude enabled", zap.String("model", cfg.Anthropic.Model))
	} else {
		zap.L().Warn("RESEARCH_ANTHROPIC_KEY not set, using deterministic plan and synthesis")
	}

	return research.NewOrchestrator(llm, financial, news, research.GatherConfig{
		Concurrency:    cfg.Gather.Concurrency,
		MaxPricePoints: cfg.Gather.MaxPricePoints,
		MaxArticles:    cfg.Gather.MaxArticles,
	}), nil
}
