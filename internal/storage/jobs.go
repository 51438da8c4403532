package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
)

// UpdateJobStatus upserts an attachment job's current lifecycle state. The
// fetch queue calls this on every transition so the table always reflects the
// latest state of each job.
func (s *SQLiteStorage) UpdateJobStatus(ctx context.Context, job *model.AttachmentJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJob(job); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachment_jobs (
			attachment_id, message_id, priority, status,
			retry_count, last_error, enqueued_at, next_attempt_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(attachment_id) DO UPDATE SET
			status = excluded.status,
			retry_count = excluded.retry_count,
			last_error = excluded.last_error,
			next_attempt_at = excluded.next_attempt_at,
			updated_at = CURRENT_TIMESTAMP
	`,
		job.AttachmentID,
		job.MessageID,
		string(job.Priority),
		string(job.Status),
		job.RetryCount,
		job.LastError,
		nullableTime(job.EnqueuedAt),
		nullableTime(job.NextAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("failed to persist job %s: %w", job.AttachmentID, err)
	}
	return nil
}

// GetJob fetches one attachment job by attachment ID.
func (s *SQLiteStorage) GetJob(ctx context.Context, attachmentID string) (*model.AttachmentJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(attachmentID, "attachmentID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT attachment_id, message_id, priority, status,
		       retry_count, last_error, enqueued_at, next_attempt_at
		FROM attachment_jobs WHERE attachment_id = ?
	`, attachmentID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, attachmentID)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", attachmentID, err)
	}
	return job, nil
}

// GetJobsByMessage returns every attachment job belonging to one message.
func (s *SQLiteStorage) GetJobsByMessage(ctx context.Context, messageID string) ([]model.AttachmentJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT attachment_id, message_id, priority, status,
		       retry_count, last_error, enqueued_at, next_attempt_at
		FROM attachment_jobs WHERE message_id = ?
		ORDER BY enqueued_at ASC, attachment_id ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs for message %s: %w", messageID, err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.AttachmentJob
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan job: %w", scanErr)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row rowScanner) (*model.AttachmentJob, error) {
	var (
		job           model.AttachmentJob
		lastError     sql.NullString
		enqueuedAt    sql.NullTime
		nextAttemptAt sql.NullTime
	)
	err := row.Scan(
		&job.AttachmentID,
		&job.MessageID,
		&job.Priority,
		&job.Status,
		&job.RetryCount,
		&lastError,
		&enqueuedAt,
		&nextAttemptAt,
	)
	if err != nil {
		return nil, err
	}
	job.LastError = lastError.String
	job.EnqueuedAt = enqueuedAt.Time
	job.NextAttemptAt = nextAttemptAt.Time
	return &job, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
