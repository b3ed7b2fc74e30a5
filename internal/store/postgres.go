package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/db"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations. AppendStep dominates:
// every recorded pipeline step lands here.
var preparedStatements = map[string]string{
	"insert_job":    `INSERT INTO jobs (id, symbol, company_name, depth, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_job":       `SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE id = $1`,
	"mark_running":  `UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`,
	"complete_job":  `UPDATE jobs SET status = $1, result = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
	"fail_job":      `UPDATE jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
	"insert_step":   `INSERT INTO job_steps (job_id, seq, stage, action, detail, success, error, duration_ms, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"list_steps":    `SELECT seq, stage, action, detail, success, error, duration_ms, recorded_at FROM job_steps WHERE job_id = $1 ORDER BY seq ASC`,
	"list_pending":  `SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	symbol       TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	depth        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	error        TEXT,
	result       JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at   TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS job_steps (
	job_id      TEXT NOT NULL REFERENCES jobs(id),
	seq         INTEGER NOT NULL,
	stage       TEXT NOT NULL,
	action      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	success     BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (job_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_symbol ON jobs(symbol);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_job_steps_job_id ON job_steps(job_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, symbol, companyName string, depth model.ResearchDepth) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, symbol, company_name, depth, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, symbol, companyName, string(depth), string(model.JobStatusPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.Job{
		ID:          id,
		Symbol:      symbol,
		CompanyName: companyName,
		Depth:       depth,
		Status:      model.JobStatusPending,
		CreatedAt:   now,
	}, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE id = $1`,
		jobID,
	)
	j, err := scanPGJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "%s", jobID)
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Symbol != "" {
		query += fmt.Sprintf(` AND symbol = $%d`, argIdx)
		args = append(args, filter.Symbol)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPGJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPGJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pending job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list pending iterate")
}

// MarkRunning transitions a job from pending to running. The status guard in
// the WHERE clause makes the claim atomic: a job another worker already
// claimed updates zero rows.
func (s *PostgresStore) MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`,
		string(model.JobStatusRunning), startedAt.UTC(), jobID, string(model.JobStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark running %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not pending: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, report *model.ResearchReport) error {
	resultJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, result = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
		string(model.JobStatusCompleted), resultJSON, time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not running: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
		string(model.JobStatusFailed), message, time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not running: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) AppendStep(ctx context.Context, jobID string, step model.Step) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_steps (job_id, seq, stage, action, detail, success, error, duration_ms, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		jobID, step.Seq, step.Stage, step.Action, step.Detail, step.Success, step.Error, step.DurationMS, step.RecordedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: append step %d for job %s", step.Seq, jobID)
}

// AppendSteps persists a whole journal in one COPY. The inline runner uses
// this after a run finishes instead of streaming steps one by one.
func (s *PostgresStore) AppendSteps(ctx context.Context, jobID string, steps []model.Step) error {
	rows := make([][]any, len(steps))
	for i, st := range steps {
		rows[i] = []any{jobID, st.Seq, st.Stage, st.Action, st.Detail, st.Success, st.Error, st.DurationMS, st.RecordedAt.UTC()}
	}
	_, err := db.CopyFrom(ctx, s.pool, "job_steps",
		[]string{"job_id", "seq", "stage", "action", "detail", "success", "error", "duration_ms", "recorded_at"},
		rows,
	)
	return eris.Wrapf(err, "postgres: append %d steps for job %s", len(steps), jobID)
}

func (s *PostgresStore) ListSteps(ctx context.Context, jobID string) ([]model.Step, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, stage, action, detail, success, error, duration_ms, recorded_at FROM job_steps WHERE job_id = $1 ORDER BY seq ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list steps for job %s", jobID)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var st model.Step
		if err := rows.Scan(&st.Seq, &st.Stage, &st.Action, &st.Detail, &st.Success, &st.Error, &st.DurationMS, &st.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan step")
		}
		steps = append(steps, st)
	}
	return steps, eris.Wrap(rows.Err(), "postgres: list steps iterate")
}

// helpers

type pgScannable interface {
	Scan(dest ...any) error
}

func scanPGJob(row pgScannable) (*model.Job, error) {
	var j model.Job
	var errMsg *string
	var resultJSON []byte

	err := row.Scan(&j.ID, &j.Symbol, &j.CompanyName, &j.Depth, &j.Status,
		&errMsg, &resultJSON, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}

	if errMsg != nil {
		j.Error = *errMsg
	}
	if len(resultJSON) > 0 {
		j.Result = &model.ResearchReport{}
		if err := json.Unmarshal(resultJSON, j.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
	}
	return &j, nil
}
