package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

const jobStatusColumns = `
	id, job_type, status, total_items, processed_items, failed_items,
	error_message, started_at, completed_at, created_at, updated_at`

func scanJobStatus(row interface{ Scan(...interface{}) error }) (*models.JobStatus, error) {
	var js models.JobStatus
	var totalItems sql.NullInt64
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&js.ID,
		&js.JobType,
		&js.Status,
		&totalItems,
		&js.ProcessedItems,
		&js.FailedItems,
		&errorMessage,
		&startedAt,
		&completedAt,
		&js.CreatedAt,
		&js.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if totalItems.Valid {
		v := int(totalItems.Int64)
		js.TotalItems = &v
	}
	if errorMessage.Valid {
		js.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		js.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		js.CompletedAt = &completedAt.Time
	}
	return &js, nil
}

// CreateJob inserts a PENDING job status row, one per execution.
func (s *PostgresStore) CreateJob(ctx context.Context, jobType models.JobType, totalItems *int) (*models.JobStatus, error) {
	var total interface{}
	if totalItems != nil {
		total = *totalItems
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO job_status (job_type, status, total_items)
		VALUES ($1, $2, $3)
		RETURNING `+jobStatusColumns,
		jobType, models.JobStatusPending, total)

	js, err := scanJobStatus(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create job status: %w", err)
	}
	return js, nil
}

func (s *PostgresStore) StartJob(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_status
		SET status = $2, started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		jobID, models.JobStatusRunning, models.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to start job %d: %w", jobID, err)
	}
	return nil
}

// finishJob moves a job to a terminal state. Rows already terminal are left
// untouched.
func (s *PostgresStore) finishJob(ctx context.Context, jobID int64, status models.JobExecutionStatus, errorMessage string) error {
	var msg interface{}
	if errorMessage != "" {
		msg = errorMessage
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE job_status
		SET status = $2, error_message = COALESCE($3, error_message),
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5, $6)`,
		jobID, status, msg,
		models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to finish job %d as %s: %w", jobID, status, err)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID int64) error {
	return s.finishJob(ctx, jobID, models.JobStatusCompleted, "")
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID int64, errorMessage string) error {
	return s.finishJob(ctx, jobID, models.JobStatusFailed, errorMessage)
}

func (s *PostgresStore) CancelJob(ctx context.Context, jobID int64) error {
	return s.finishJob(ctx, jobID, models.JobStatusCancelled, "")
}

func (s *PostgresStore) UpdateTotalItems(ctx context.Context, jobID int64, totalItems int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_status SET total_items = $2, updated_at = NOW() WHERE id = $1`,
		jobID, totalItems)
	if err != nil {
		return fmt.Errorf("failed to update total items for job %d: %w", jobID, err)
	}
	return nil
}

// IncrementJobCounts applies the batch deltas in one update rather than a
// write per item.
func (s *PostgresStore) IncrementJobCounts(ctx context.Context, jobID int64, processedDelta, failedDelta int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_status
		SET processed_items = processed_items + $2,
		    failed_items = failed_items + $3,
		    updated_at = NOW()
		WHERE id = $1`,
		jobID, processedDelta, failedDelta)
	if err != nil {
		return fmt.Errorf("failed to increment counts for job %d: %w", jobID, err)
	}
	return nil
}

func (s *PostgresStore) GetJobStatus(ctx context.Context, jobID int64) (*models.JobStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobStatusColumns+` FROM job_status WHERE id = $1`, jobID)

	js, err := scanJobStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get job status %d: %w", jobID, err)
	}
	return js, nil
}

func (s *PostgresStore) ListJobStatuses(ctx context.Context, filter JobStatusFilter) ([]*models.JobStatus, error) {
	query := `SELECT ` + jobStatusColumns + ` FROM job_status WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.JobType != nil {
		argCount++
		query += fmt.Sprintf(" AND job_type = $%d", argCount)
		args = append(args, *filter.JobType)
	}
	if filter.Status != nil {
		argCount++
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*models.JobStatus
	for rows.Next() {
		js, err := scanJobStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job status: %w", err)
		}
		statuses = append(statuses, js)
	}
	return statuses, rows.Err()
}

// DeleteJobStatus removes a job execution row and its logs. Maintenance
// tooling only; runners never delete.
func (s *PostgresStore) DeleteJobStatus(ctx context.Context, jobID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM job_logs WHERE job_status_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to delete job logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM job_status WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to delete job status: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) JobStats(ctx context.Context) ([]*models.JobTypeStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			job_type,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM job_status
		GROUP BY job_type
		ORDER BY job_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query job stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.JobTypeStats
	for rows.Next() {
		var s models.JobTypeStats
		if err := rows.Scan(&s.JobType, &s.Total, &s.Completed, &s.Failed, &s.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan job stats: %w", err)
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) AppendJobLog(ctx context.Context, jobStatusID int64, level models.LogLevel, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_logs (job_status_id, level, message)
		VALUES ($1, $2, $3)`,
		jobStatusID, level, message)
	if err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListJobLogs(ctx context.Context, jobStatusID int64, limit int) ([]*models.JobLog, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_status_id, level, message, created_at
		FROM job_logs
		WHERE job_status_id = $1
		ORDER BY id
		LIMIT $2`,
		jobStatusID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.JobLog
	for rows.Next() {
		var l models.JobLog
		if err := rows.Scan(&l.ID, &l.JobStatusID, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
