package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

// ErrNotFound is returned when a lookup matches no job.
var ErrNotFound = eris.New("job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Symbol string          `json:"symbol,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for research jobs and their step
// journals. Both backends enforce the forward-only status transitions: a job
// leaves pending exactly once, and only a running job can complete or fail.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, symbol, companyName string, depth model.ResearchDepth) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	ListPending(ctx context.Context, limit int) ([]model.Job, error)
	MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error
	CompleteJob(ctx context.Context, jobID string, report *model.ResearchReport) error
	FailJob(ctx context.Context, jobID string, message string) error

	// Steps
	AppendStep(ctx context.Context, jobID string, step model.Step) error
	AppendSteps(ctx context.Context, jobID string, steps []model.Step) error
	ListSteps(ctx context.Context, jobID string) ([]model.Step, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
