package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under the processor's concurrent step appends.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	symbol       TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	depth        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	error        TEXT,
	result       TEXT,
	created_at   DATETIME NOT NULL,
	started_at   DATETIME,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS job_steps (
	job_id      TEXT NOT NULL REFERENCES jobs(id),
	seq         INTEGER NOT NULL,
	stage       TEXT NOT NULL,
	action      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	recorded_at DATETIME NOT NULL,
	PRIMARY KEY (job_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_symbol ON jobs(symbol);
CREATE INDEX IF NOT EXISTS idx_job_steps_job_id ON job_steps(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, symbol, companyName string, depth model.ResearchDepth) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, symbol, company_name, depth, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, symbol, companyName, string(depth), string(model.JobStatusPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
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

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE id = ?`,
		jobID,
	)
	j, err := scanSQLiteJob(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "%s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, company_name, depth, status, error, result, created_at, started_at, completed_at FROM jobs WHERE status = 'pending' ORDER BY created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pending job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list pending iterate")
}

func (s *SQLiteStore) MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusRunning), startedAt.UTC(), jobID, string(model.JobStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark running %s", jobID)
	}
	return checkRowsAffected(res, "job not pending", jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, report *model.ResearchReport) error {
	resultJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusCompleted), string(resultJSON), time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job not running", jobID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusFailed), message, time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, "job not running", jobID)
}

func (s *SQLiteStore) AppendStep(ctx context.Context, jobID string, step model.Step) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_steps (job_id, seq, stage, action, detail, success, error, duration_ms, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, step.Seq, step.Stage, step.Action, step.Detail, step.Success, step.Error, step.DurationMS, step.RecordedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append step %d for job %s", step.Seq, jobID)
}

func (s *SQLiteStore) AppendSteps(ctx context.Context, jobID string, steps []model.Step) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append steps")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO job_steps (job_id, seq, stage, action, detail, success, error, duration_ms, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare append steps")
	}
	defer stmt.Close()

	for _, st := range steps {
		if _, err := stmt.ExecContext(ctx, jobID, st.Seq, st.Stage, st.Action, st.Detail, st.Success, st.Error, st.DurationMS, st.RecordedAt.UTC()); err != nil {
			return eris.Wrapf(err, "sqlite: append step %d for job %s", st.Seq, jobID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit append steps")
}

func (s *SQLiteStore) ListSteps(ctx context.Context, jobID string) ([]model.Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, stage, action, detail, success, error, duration_ms, recorded_at FROM job_steps WHERE job_id = ? ORDER BY seq ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list steps for job %s", jobID)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var st model.Step
		if err := rows.Scan(&st.Seq, &st.Stage, &st.Action, &st.Detail, &st.Success, &st.Error, &st.DurationMS, &st.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan step")
		}
		steps = append(steps, st)
	}
	return steps, eris.Wrap(rows.Err(), "sqlite: list steps iterate")
}

// helpers

func checkRowsAffected(res sql.Result, reason, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s: %s", reason, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row scannable) (*model.Job, error) {
	var j model.Job
	var errMsg, resultJSON sql.NullString

	err := row.Scan(&j.ID, &j.Symbol, &j.CompanyName, &j.Depth, &j.Status,
		&errMsg, &resultJSON, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}

	if errMsg.Valid {
		j.Error = errMsg.String
	}
	if resultJSON.Valid && resultJSON.String != "" {
		j.Result = &model.ResearchReport{}
		if err := json.Unmarshal([]byte(resultJSON.String), j.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
	}
	return &j, nil
}
