package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

func completedJob(signal string, dur time.Duration) model.Job {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(dur)
	return model.Job{
		ID:          "11111111-2222-3333-4444-555555555555",
		Symbol:      "AAPL",
		Depth:       model.DepthStandard,
		Status:      model.JobStatusCompleted,
		CreatedAt:   started,
		StartedAt:   &started,
		CompletedAt: &completed,
		Result:      &model.ResearchReport{Symbol: "AAPL", Signal: signal},
	}
}

func TestComputeJobStats(t *testing.T) {
	jobs := []model.Job{
		completedJob(model.SignalBullish, 10*time.Second),
		completedJob(model.SignalBearish, 20*time.Second),
		completedJob(model.SignalNeutral, 30*time.Second),
		{Status: model.JobStatusFailed},
		{Status: model.JobStatusRunning},
		{Status: model.JobStatusPending},
	}

	s := computeJobStats(jobs)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.Bullish)
	assert.Equal(t, 1, s.Bearish)
	assert.Equal(t, 1, s.Neutral)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 1, s.Pending)
	assert.InDelta(t, 20.0, s.AvgDurSecs, 0.001)
}

func TestComputeJobStats_Empty(t *testing.T) {
	s := computeJobStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatJobsList(t *testing.T) {
	var buf bytes.Buffer
	formatJobsList(&buf, []model.Job{completedJob(model.SignalBullish, 42*time.Second)})

	out := buf.String()
	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "11111111")
	assert.NotContains(t, out, "11111111-2222")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "Bullish")
	assert.Contains(t, out, "42s")
}

func TestFormatJobStats(t *testing.T) {
	var buf bytes.Buffer
	formatJobStats(&buf, jobStats{Total: 4, Completed: 2, Bullish: 1, Neutral: 1, Failed: 1, Pending: 1, AvgDurSecs: 12.5})

	out := buf.String()
	assert.Contains(t, out, "Total jobs:")
	assert.Contains(t, out, "12.5s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "short", truncateID("short"))
}
