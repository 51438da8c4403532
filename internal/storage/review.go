package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/finsift/finsift/internal/service"
)

// EnqueueForReview adds a document to the manual review queue. The call is
// idempotent on file hash: re-queueing the same file is a silent no-op.
func (s *SQLiteStorage) EnqueueForReview(ctx context.Context, item service.ReviewItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReviewItem(&item); err != nil {
		return err
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO review_queue (
			blob_key, file_name, file_hash, kind, context, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		item.BlobKey,
		item.FileName,
		item.FileHash,
		item.Kind,
		item.Context,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue review item: %w", err)
	}
	return nil
}

// ListReviewItems returns queued documents, oldest first.
func (s *SQLiteStorage) ListReviewItems(ctx context.Context, limit int) ([]service.ReviewItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT blob_key, file_name, file_hash, kind, context, created_at
		FROM review_queue
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []service.ReviewItem
	for rows.Next() {
		var item service.ReviewItem
		if scanErr := rows.Scan(
			&item.BlobKey,
			&item.FileName,
			&item.FileHash,
			&item.Kind,
			&item.Context,
			&item.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan review item: %w", scanErr)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review items: %w", err)
	}
	return items, nil
}
