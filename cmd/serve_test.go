package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRouter_Health(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_CreateJob(t *testing.T) {
	st := newTestStore(t)

	var enqueued []string
	router := buildRouter(st, func(jobID string) { enqueued = append(enqueued, jobID) })

	payload := map[string]string{
		"symbol":       "AAPL",
		"company_name": "Apple Inc.",
		"depth":        "deep",
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)

	var job model.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "AAPL", job.Symbol)
	assert.Equal(t, model.DepthDeep, job.Depth)
	assert.Equal(t, model.JobStatusPending, job.Status)

	// Handed straight to the processor.
	require.Len(t, enqueued, 1)
	assert.Equal(t, job.ID, enqueued[0])

	// And persisted.
	stored, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, stored.Status)
}

func TestRouter_CreateJob_DefaultsDepth(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	body, _ := json.Marshal(map[string]string{"symbol": "MSFT"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)

	var job model.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, model.DepthStandard, job.Depth)
}

func TestRouter_CreateJob_MissingSymbol(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	body, _ := json.Marshal(map[string]string{"company_name": "Apple Inc."})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "symbol is required")
}

func TestRouter_CreateJob_InvalidDepth(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	body, _ := json.Marshal(map[string]string{"symbol": "AAPL", "depth": "exhaustive"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "depth must be")
}

func TestRouter_CreateJob_InvalidBody(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestRouter_ListJobs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateJob(ctx, "AAPL", "Apple Inc.", model.DepthStandard)
	require.NoError(t, err)
	msft, err := st.CreateJob(ctx, "MSFT", "Microsoft", model.DepthQuick)
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning(ctx, msft.ID, time.Now().UTC()))

	router := buildRouter(st, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var jobs []model.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)

	// Status filter narrows the result.
	req = httptest.NewRequest(http.MethodGet, "/jobs?status=running", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "MSFT", jobs[0].Symbol)
}

func TestRouter_ListJobs_EmptyIsArray(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestRouter_ListJobs_BadLimit(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs?limit=zero", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_GetJob_WithSteps(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "AAPL", "Apple Inc.", model.DepthStandard)
	require.NoError(t, err)
	require.NoError(t, st.AppendStep(ctx, job.ID, model.Step{
		Seq: 1, Stage: "plan", Action: "llm_plan", Success: true, RecordedAt: time.Now().UTC(),
	}))
	require.NoError(t, st.AppendStep(ctx, job.ID, model.Step{
		Seq: 2, Stage: "gather-financial", Action: "fetch", Success: false, Error: "rate_limit", RecordedAt: time.Now().UTC(),
	}))

	router := buildRouter(st, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "plan", got.Steps[0].Stage)
	assert.Equal(t, "rate_limit", got.Steps[1].Error)
}

func TestRouter_GetJob_NotFound(t *testing.T) {
	router := buildRouter(newTestStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "job not found")
}
