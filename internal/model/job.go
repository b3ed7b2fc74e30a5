package model

import "time"

// JobStatus represents the lifecycle state of a research job.
// Transitions only move forward: pending, running, then completed or failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ResearchDepth controls how far back the pipeline looks and how much it gathers.
type ResearchDepth string

const (
	DepthQuick    ResearchDepth = "quick"
	DepthStandard ResearchDepth = "standard"
	DepthDeep     ResearchDepth = "deep"
)

// ValidDepth reports whether d is a recognized research depth.
func ValidDepth(d ResearchDepth) bool {
	switch d {
	case DepthQuick, DepthStandard, DepthDeep:
		return true
	}
	return false
}

// Job represents one end-to-end research request and its lifecycle state.
type Job struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Depth       ResearchDepth   `json:"depth"`
	Status      JobStatus       `json:"status"`
	Error       string          `json:"error,omitempty"`
	Result      *ResearchReport `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Steps       []Step          `json:"steps,omitempty"`
}

// Step is one immutable, numbered progress record emitted by a pipeline stage
// or provider attempt. Sequence numbers are strictly increasing within a job,
// shared across all stages of one run.
type Step struct {
	Seq        int       `json:"seq"`
	Stage      string    `json:"stage"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ResearchPlan is the read-only output of the plan stage, consumed by the
// gather and synthesize stages.
type ResearchPlan struct {
	FocusAreas      []string `json:"focus_areas"`
	Metrics         []string `json:"metrics"`
	SearchTopics    []string `json:"search_topics"`
	TimeframeMonths int      `json:"timeframe_months"`
	RiskFactors     []string `json:"risk_factors"`
}

// PricePoint is one daily closing price observation.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume,omitempty"`
}

// FinancialData is the merged output of the financial gather stage.
type FinancialData struct {
	Symbol        string       `json:"symbol"`
	Price         float64      `json:"price,omitempty"`
	ChangePercent float64      `json:"change_percent,omitempty"`
	MarketCap     float64      `json:"market_cap,omitempty"`
	PERatio       float64      `json:"pe_ratio,omitempty"`
	EPS           float64      `json:"eps,omitempty"`
	DividendYield float64      `json:"dividend_yield,omitempty"`
	AnalystRating string       `json:"analyst_rating,omitempty"`
	Sector        string       `json:"sector,omitempty"`
	History       []PricePoint `json:"history,omitempty"`
	Trend         string       `json:"trend,omitempty"`
	Sources       []string     `json:"sources,omitempty"`
}

// Article is one news item with a sentiment score in [-1, 1].
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   float64   `json:"sentiment"`
}

// NewsData is the merged output of the news gather stage.
type NewsData struct {
	Articles       []Article `json:"articles,omitempty"`
	Sentiment      float64   `json:"sentiment"`
	SentimentLabel string    `json:"sentiment_label,omitempty"`
	Themes         []string  `json:"themes,omitempty"`
	Sources        []string  `json:"sources,omitempty"`
}

// Insights groups the synthesized findings by category.
type Insights struct {
	Strengths     []string `json:"strengths,omitempty"`
	Risks         []string `json:"risks,omitempty"`
	Opportunities []string `json:"opportunities,omitempty"`
}

// SourceProvenance records which providers contributed to the report.
type SourceProvenance struct {
	Financial []string `json:"financial,omitempty"`
	News      []string `json:"news,omitempty"`
}

// StepSummary condenses the step history for the final report.
type StepSummary struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

// ResearchReport is the final output of a completed research job.
type ResearchReport struct {
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"company_name"`
	Thesis      string           `json:"thesis"`
	Signal      string           `json:"signal"`
	Confidence  float64          `json:"confidence"`
	Insights    Insights         `json:"insights"`
	Sources     SourceProvenance `json:"sources"`
	Steps       StepSummary      `json:"steps"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Directional signals emitted by the synthesize stage.
const (
	SignalBullish = "Bullish"
	SignalBearish = "Bearish"
	SignalNeutral = "Neutral"
)
