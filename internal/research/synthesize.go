package research

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

const synthesizeSystemPrompt = `You are an investment research analyst. Given a research plan, financial data,
news sentiment, and the pipeline's step history, write an investment thesis.
Respond with a single JSON object:
{"thesis": "...", "signal": "Bullish|Bearish|Neutral", "confidence": 0.0-1.0,
 "strengths": [...], "risks": [...], "opportunities": [...]}
No prose outside the JSON.`

// synthesisResponse is the JSON shape expected back from the model.
type synthesisResponse struct {
	Thesis        string   `json:"thesis"`
	Signal        string   `json:"signal"`
	Confidence    float64  `json:"confidence"`
	Strengths     []string `json:"strengths"`
	Risks         []string `json:"risks"`
	Opportunities []string `json:"opportunities"`
}

// Synthesize combines the plan, both gathered datasets, and the step history
// into the final report. The primary path delegates to the language
// capability; on any failure it falls back to the deterministic scoring rule.
func Synthesize(ctx context.Context, llm TextCompleter, rec *Recorder, job model.Job, plan *model.ResearchPlan, fin *model.FinancialData, news *model.NewsData, history []model.Step) *model.ResearchReport {
	report := &model.ResearchReport{
		Symbol:      job.Symbol,
		CompanyName: job.CompanyName,
		Sources: model.SourceProvenance{
			Financial: fin.Sources,
			News:      news.Sources,
		},
		GeneratedAt: time.Now().UTC(),
	}
	// Summary of the history so far; the orchestrator refreshes it with the
	// synthesis steps once the journal is final.
	report.Steps = SummarizeSteps(history)

	if llm != nil {
		start := time.Now()
		text, err := llm.Complete(ctx, synthesizeSystemPrompt, synthesisPrompt(job, plan, fin, news, report.Steps))
		if err == nil {
			var resp synthesisResponse
			if jsonErr := json.Unmarshal([]byte(extractJSON(text)), &resp); jsonErr == nil && validSignal(resp.Signal) {
				report.Thesis = resp.Thesis
				report.Signal = resp.Signal
				report.Confidence = clampConfidence(resp.Confidence)
				report.Insights = model.Insights{
					Strengths:     resp.Strengths,
					Risks:         resp.Risks,
					Opportunities: resp.Opportunities,
				}
				rec.StepTimed("synthesize report", "signal "+report.Signal, time.Since(start))
				return report
			}
			err = fmt.Errorf("unparseable synthesis response")
		}
		zap.L().Warn("research: synthesis completion failed, using fallback",
			zap.String("symbol", job.Symbol), zap.Error(err))
		rec.Fail("synthesize report", "completion failed, using deterministic fallback", err, time.Since(start))
	}

	fallbackReport(report, plan, fin, news)
	rec.Step("synthesize report", fmt.Sprintf("fallback signal %s (%.2f confidence)", report.Signal, report.Confidence))
	return report
}

// SummarizeSteps condenses a step history into totals for the report.
func SummarizeSteps(steps []model.Step) model.StepSummary {
	var sum model.StepSummary
	for _, s := range steps {
		sum.Total++
		if !s.Success {
			sum.Failed++
		}
	}
	return sum
}

func synthesisPrompt(job model.Job, plan *model.ResearchPlan, fin *model.FinancialData, news *model.NewsData, steps model.StepSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s (%s), depth %s\n", job.CompanyName, job.Symbol, job.Depth)
	fmt.Fprintf(&b, "Plan focus areas: %s\n", strings.Join(plan.FocusAreas, ", "))
	fmt.Fprintf(&b, "Risk factors: %s\n", strings.Join(plan.RiskFactors, ", "))
	fmt.Fprintf(&b, "Price: %.2f, trend: %s, PE: %.2f, EPS: %.2f, analyst rating: %s\n",
		fin.Price, fin.Trend, fin.PERatio, fin.EPS, fin.AnalystRating)
	fmt.Fprintf(&b, "News sentiment: %s (%.2f) across %d articles, themes: %s\n",
		news.SentimentLabel, news.Sentiment, len(news.Articles), strings.Join(news.Themes, ", "))
	fmt.Fprintf(&b, "Pipeline steps: %d total, %d failed\n", steps.Total, steps.Failed)
	return b.String()
}

func validSignal(s string) bool {
	switch s {
	case model.SignalBullish, model.SignalBearish, model.SignalNeutral:
		return true
	}
	return false
}

// fallbackReport fills the report from the deterministic scoring rule:
// trend +/-2, sentiment +/-2 at |score| > 0.2, analyst rating +/-1 on buy/sell
// substrings; Bullish at score >= 3, Bearish at <= -3, else Neutral.
func fallbackReport(report *model.ResearchReport, plan *model.ResearchPlan, fin *model.FinancialData, news *model.NewsData) {
	score := 0
	switch fin.Trend {
	case TrendStrongUp, TrendUp:
		score += 2
	case TrendStrongDown, TrendDown:
		score -= 2
	}
	if news.Sentiment > 0.2 {
		score += 2
	} else if news.Sentiment < -0.2 {
		score -= 2
	}
	rating := strings.ToLower(fin.AnalystRating)
	if strings.Contains(rating, "buy") {
		score++
	} else if strings.Contains(rating, "sell") {
		score--
	}

	switch {
	case score >= 3:
		report.Signal = model.SignalBullish
	case score <= -3:
		report.Signal = model.SignalBearish
	default:
		report.Signal = model.SignalNeutral
	}

	report.Confidence = fallbackConfidence(fin, news)
	report.Thesis = fallbackThesis(report.Signal, fin, news)
	report.Insights = fallbackInsights(plan, fin, news)
}

func fallbackConfidence(fin *model.FinancialData, news *model.NewsData) float64 {
	c := 0.5 +
		0.1*float64(len(fin.Sources)) +
		0.05*float64(len(news.Sources)) +
		math.Min(0.15, 0.01*float64(len(news.Articles)))
	if strings.HasPrefix(fin.Trend, "Strong") {
		c += 0.1
	}
	if math.Abs(news.Sentiment) > 0.3 {
		c += 0.1
	}
	return clampConfidence(c)
}

func clampConfidence(c float64) float64 {
	return math.Min(0.95, math.Max(0.3, c))
}

func fallbackThesis(signal string, fin *model.FinancialData, news *model.NewsData) string {
	return fmt.Sprintf("%s: price trend is %q and news sentiment is %s (%.2f) across %d articles.",
		signal, fin.Trend, news.SentimentLabel, news.Sentiment, len(news.Articles))
}

func fallbackInsights(plan *model.ResearchPlan, fin *model.FinancialData, news *model.NewsData) model.Insights {
	var ins model.Insights
	switch fin.Trend {
	case TrendStrongUp, TrendUp:
		ins.Strengths = append(ins.Strengths, "positive price trend: "+fin.Trend)
	case TrendStrongDown, TrendDown:
		ins.Risks = append(ins.Risks, "negative price trend: "+fin.Trend)
	}
	if news.Sentiment >= 0.1 {
		ins.Strengths = append(ins.Strengths, "favorable news sentiment: "+news.SentimentLabel)
	} else if news.Sentiment <= -0.1 {
		ins.Risks = append(ins.Risks, "unfavorable news sentiment: "+news.SentimentLabel)
	}
	ins.Risks = append(ins.Risks, plan.RiskFactors...)
	for _, theme := range news.Themes {
		ins.Opportunities = append(ins.Opportunities, "news theme: "+theme)
	}
	return ins
}
