package store

import (
	"context"
	"time"
)

// ListDueJobs implements the claim-candidate query from spec §4.8: pending
// jobs whose runAt has passed, plus processing jobs whose lease expired.
func (s *PostgresStore) ListDueJobs(ctx context.Context, leaseExpiry time.Time, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, jobSelectSQL+`
		WHERE active_key IS NOT NULL
		  AND attempts < max_attempts
		  AND ( (status = 'PENDING' AND run_at <= now())
		     OR (status = 'PROCESSING' AND locked_at < $1) )
		ORDER BY run_at ASC
		LIMIT $2
	`, leaseExpiry, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimJob is the atomic conditional UPDATE from spec §4.8: it succeeds only
// if the row is still schedulable, so two workers racing on the same job
// never both think they won.
func (s *PostgresStore) ClaimJob(ctx context.Context, jobID string, leaseExpiry time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'PROCESSING', locked_at = now(), attempts = attempts + 1
		WHERE id = $1
		  AND active_key IS NOT NULL
		  AND (status = 'PENDING' OR (status = 'PROCESSING' AND locked_at < $2))
	`, jobID, leaseExpiry)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'COMPLETED', active_key = NULL, completed_at = now(), last_error = ''
		WHERE id = $1
	`, jobID)
	return err
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, lastErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'FAILED', active_key = NULL, completed_at = now(), last_error = $2
		WHERE id = $1
	`, jobID, lastErr)
	return err
}

func (s *PostgresStore) RetryJob(ctx context.Context, jobID string, nextRunAt time.Time, lastErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'PENDING', locked_at = NULL, run_at = $2, last_error = $3
		WHERE id = $1
	`, jobID, nextRunAt, lastErr)
	return err
}

// RequeueJob resurrects a FAILED job for manual operator retry (spec §9:
// resurrection is deliberately not automatic).
func (s *PostgresStore) RequeueJob(ctx context.Context, jobID string) error {
	j, err := scanJobRow(s.db.QueryRowContext(ctx, jobSelectSQL+` WHERE id = $1`, jobID))
	if err != nil {
		return err
	}
	if j.Status != JobFailed {
		return ErrNotFound
	}
	var key string
	if j.Type == JobRestock && j.BookID != nil {
		key = string(JobRestock) + ":" + *j.BookID
	} else if j.Type == JobReminder && j.BorrowID != nil {
		key = string(JobReminder) + ":" + *j.BorrowID
	} else {
		key = string(j.Type) + ":" + j.ID
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'PENDING', active_key = $2, attempts = 0, run_at = now(), last_error = '', completed_at = NULL
		WHERE id = $1
	`, jobID, key)
	return err
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]Job, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != "" {
		where = " WHERE status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)
	limitClause := ""
	if where == "" {
		limitClause = " ORDER BY run_at DESC LIMIT $1 OFFSET $2"
	} else {
		limitClause = " ORDER BY run_at DESC LIMIT $2 OFFSET $3"
	}

	rows, err := s.db.QueryContext(ctx, jobSelectSQL+where+limitClause, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}
