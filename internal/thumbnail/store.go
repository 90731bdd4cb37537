package thumbnail

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists Jobs in SQLite, following internal/buildstate.Store and
// internal/versionstore.Store's single-JSON-blob-per-row pattern. Ported
// against thumbnail_queue.py's ThumbnailJob table operations
// (_enqueue_job, _claim_job, _mark_done, _mark_failed_or_retry).
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite-backed Store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("thumbnail: %s: %w", pragma, err)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS thumbnail_jobs (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	page_id      TEXT NOT NULL,
	type         TEXT NOT NULL,
	status       TEXT NOT NULL,
	next_run_at  TIMESTAMP,
	created_at   TIMESTAMP NOT NULL,
	data         BLOB NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("thumbnail: migrate: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_thumbnail_jobs_claim ON thumbnail_jobs(type, status, next_run_at)`)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) save(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO thumbnail_jobs (id, project_id, page_id, type, status, next_run_at, created_at, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	next_run_at = excluded.next_run_at,
	data = excluded.data
`, j.ID, j.ProjectID, j.PageID, string(j.Type), string(j.Status), j.NextRunAt, j.CreatedAt, data)
	return err
}

func scanJob(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Get returns the job with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM thumbnail_jobs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, err
	}
	return scanJob(data)
}

// LatestJob returns the most recently created/updated job for
// (projectID, pageID, jobType), or nil if none exists. Grounded on
// get_latest_job.
func (s *Store) LatestJob(ctx context.Context, projectID, pageID string, jobType JobType) (*Job, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
SELECT data FROM thumbnail_jobs
WHERE project_id = ? AND page_id = ? AND type = ?
ORDER BY created_at DESC LIMIT 1
`, projectID, pageID, string(jobType)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scanJob(data)
}

// Enqueue supersedes any queued/running job for the same
// (projectID, pageID, jobType) and inserts a fresh queued job, optionally
// delayed by delay. Grounded on _enqueue_job.
func (s *Store) Enqueue(ctx context.Context, projectID, pageID string, jobType JobType, delay time.Duration) (*Job, error) {
	now := time.Now()

	rows, err := s.db.QueryContext(ctx, `
SELECT id, data FROM thumbnail_jobs
WHERE project_id = ? AND page_id = ? AND type = ? AND status IN ('queued', 'running')
`, projectID, pageID, string(jobType))
	if err != nil {
		return nil, err
	}
	var superseded []*Job
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			rows.Close()
			return nil, err
		}
		j, err := scanJob(data)
		if err != nil {
			rows.Close()
			return nil, err
		}
		superseded = append(superseded, j)
	}
	rows.Close()

	for _, j := range superseded {
		j.Status = StatusFailed
		j.LastError = "superseded by new job"
		j.UpdatedAt = now
		if err := s.save(ctx, j); err != nil {
			return nil, err
		}
	}

	nextRun := now
	if delay > 0 {
		nextRun = now.Add(delay)
	}
	job := &Job{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		PageID:      pageID,
		Type:        jobType,
		Status:      StatusQueued,
		MaxAttempts: 3,
		NextRunAt:   nextRun,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Claim atomically picks the oldest runnable queued job of jobType whose
// next_run_at has elapsed, marks it running, and returns it. Grounded on
// _claim_job's SELECT ... FOR UPDATE SKIP LOCKED; modernc.org/sqlite has
// no row-level locking, so Store.db's single-connection pool (set in
// Open) serializes claims instead, giving the same at-most-once-claim
// guarantee SKIP LOCKED provides against concurrent pollers.
func (s *Store) Claim(ctx context.Context, jobType JobType) (*Job, error) {
	now := time.Now()
	var id string
	var data []byte
	err := s.db.QueryRowContext(ctx, `
SELECT id, data FROM thumbnail_jobs
WHERE type = ? AND status = 'queued' AND (next_run_at IS NULL OR next_run_at <= ?)
ORDER BY next_run_at ASC, created_at ASC LIMIT 1
`, string(jobType), now).Scan(&id, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job, err := scanJob(data)
	if err != nil {
		return nil, err
	}
	job.Status = StatusRunning
	job.UpdatedAt = now
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// MarkDone records a job's successful completion.
func (s *Store) MarkDone(ctx context.Context, job *Job, imageURL string) error {
	job.Status = StatusDone
	job.ImageURL = imageURL
	job.LastError = ""
	job.UpdatedAt = time.Now()
	return s.save(ctx, job)
}

// MarkFailedOrRetry records a job failure, either rescheduling it with
// the fixed backoff or, once attempts are exhausted, marking it failed
// with whatever placeholder image URL the caller has already produced.
// Grounded on _mark_failed_or_retry.
func (s *Store) MarkFailedOrRetry(ctx context.Context, job *Job, errMessage, placeholderURL string) error {
	now := time.Now()
	job.Attempts++
	if job.Attempts < job.MaxAttempts {
		job.Status = StatusQueued
		job.NextRunAt = now.Add(backoffDelay(job.Attempts))
		job.LastError = errMessage
		job.UpdatedAt = now
		return s.save(ctx, job)
	}

	job.Status = StatusFailed
	job.LastError = errMessage
	job.ImageURL = placeholderURL
	job.UpdatedAt = now
	return s.save(ctx, job)
}
