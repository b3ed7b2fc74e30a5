package research

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

// Timeframe bounds for a research plan, in months.
const (
	minTimeframeMonths = 6
	maxTimeframeMonths = 60
)

const planSystemPrompt = `You are an investment research planner. Given a company, propose a research plan.
Respond with a single JSON object:
{"focus_areas": [...], "metrics": [...], "search_topics": [...], "timeframe_months": N, "risk_factors": [...]}
Keep each list to at most five short entries. No prose outside the JSON.`

// PlanStage produces the research plan for a job. It makes a single completion
// attempt; on any failure (capability absent, malformed response, timeout) it
// falls back to the deterministic default plan for the job's depth.
func PlanStage(ctx context.Context, llm TextCompleter, rec *Recorder, job model.Job) *model.ResearchPlan {
	if llm == nil {
		rec.Step("draft plan", "no completion capability, using default plan")
		return DefaultPlan(job.Depth, job.Symbol)
	}

	user := fmt.Sprintf("Company: %s (%s). Research depth: %s. Propose the plan.",
		job.CompanyName, job.Symbol, job.Depth)

	start := time.Now()
	text, err := llm.Complete(ctx, planSystemPrompt, user)
	if err != nil {
		rec.Fail("draft plan", "completion failed, using default plan", err, time.Since(start))
		return DefaultPlan(job.Depth, job.Symbol)
	}

	var plan model.ResearchPlan
	if jsonErr := json.Unmarshal([]byte(extractJSON(text)), &plan); jsonErr != nil {
		zap.L().Warn("research: unparseable plan response", zap.String("symbol", job.Symbol), zap.Error(jsonErr))
		rec.Fail("draft plan", "malformed plan response, using default plan", jsonErr, time.Since(start))
		return DefaultPlan(job.Depth, job.Symbol)
	}

	plan.TimeframeMonths = clampTimeframe(plan.TimeframeMonths)
	if len(plan.SearchTopics) == 0 {
		plan.SearchTopics = defaultSearchTopics(job.Symbol)
	}

	rec.StepTimed("draft plan",
		fmt.Sprintf("%d focus areas, %d month timeframe", len(plan.FocusAreas), plan.TimeframeMonths),
		time.Since(start))
	return &plan
}

// DefaultPlan is the deterministic fallback plan, parameterized only by depth.
func DefaultPlan(depth model.ResearchDepth, symbol string) *model.ResearchPlan {
	months := 12
	switch depth {
	case model.DepthQuick:
		months = 6
	case model.DepthDeep:
		months = 24
	}

	return &model.ResearchPlan{
		FocusAreas:      []string{"financial performance", "market position", "recent developments"},
		Metrics:         []string{"price trend", "pe_ratio", "eps", "dividend_yield"},
		SearchTopics:    defaultSearchTopics(symbol),
		TimeframeMonths: clampTimeframe(months),
		RiskFactors:     []string{"market volatility", "sector headwinds", "execution risk"},
	}
}

func defaultSearchTopics(symbol string) []string {
	return []string{symbol + " earnings", symbol + " outlook", symbol + " news"}
}

func clampTimeframe(months int) int {
	if months < minTimeframeMonths {
		return minTimeframeMonths
	}
	if months > maxTimeframeMonths {
		return maxTimeframeMonths
	}
	return months
}
