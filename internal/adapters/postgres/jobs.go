package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"cryptointel/internal/ports"
)

func (db *DB) Enqueue(ctx context.Context, sourceID int64) (string, error) {
	var jobID string
	err := db.Pool.QueryRow(ctx, `INSERT INTO scrape_jobs (source_id) VALUES ($1) RETURNING id::text`, sourceID).Scan(&jobID)
	return jobID, err
}

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ScrapeJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id::text, source_id FROM scrape_jobs
		WHERE status = 'queued'
		ORDER BY queued_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&job.ID, &job.SourceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE scrape_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
	`, job.ID); err != nil {
		return job, false, err
	}
	return job, true, nil
}

// MarkCompleted finishes the job and marks its source Active, atomically.
func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	return db.finish(ctx, jobID, "completed", "", `UPDATE data_sources SET status='Active', last_scraped=now() WHERE id=$1`)
}

// MarkFailed finishes the job and marks its source Offline, atomically.
func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return db.finish(ctx, jobID, "failed", reason, `UPDATE data_sources SET status='Offline' WHERE id=$1`)
}

// Requeue puts a running job back in the queue, e.g. when its worker is
// stopped mid-scrape.
func (db *DB) Requeue(ctx context.Context, jobID string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scrape_jobs SET status='queued', started_at=NULL WHERE id=$1 AND status='running'
	`, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM scrape_jobs WHERE id=$1)`, jobID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ports.ErrNotFound
		}
	}
	return nil
}

func (db *DB) finish(ctx context.Context, jobID, status, reason, sourceUpdate string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var sourceID int64
	err = tx.QueryRow(ctx, `
		UPDATE scrape_jobs SET status=$2, last_error=NULLIF($3, ''), finished_at=now()
		WHERE id=$1
		RETURNING source_id
	`, jobID, status, reason).Scan(&sourceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sourceUpdate, sourceID)
	return err
}
