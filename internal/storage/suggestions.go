package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
	"github.com/mattn/go-sqlite3"
)

const suggestionColumns = `id, operation_id, date, type, currency, amount,
	description, reasoning, detection_method, confidence, status,
	is_duplicate, duplicate_reason, related_suggestion_id,
	attachment_hash, extracted_text_excerpt, created_at`

// InsertSuggestion stores a new suggestion. Suggestions are append-only from
// the pipeline's side; inserting an existing ID is an error.
func (s *SQLiteStorage) InsertSuggestion(ctx context.Context, suggestion *model.Suggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSuggestion(suggestion); err != nil {
		return err
	}

	if suggestion.CreatedAt.IsZero() {
		suggestion.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (
			id, operation_id, date, type, currency, amount,
			description, reasoning, detection_method, confidence, status,
			is_duplicate, duplicate_reason, related_suggestion_id,
			attachment_hash, extracted_text_excerpt, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		suggestion.ID,
		suggestion.OperationID,
		suggestion.Date,
		string(suggestion.Type),
		string(suggestion.Currency),
		suggestion.Amount,
		suggestion.Description,
		suggestion.Reasoning,
		string(suggestion.DetectionMethod),
		suggestion.Confidence,
		string(suggestion.Status),
		suggestion.IsDuplicate,
		suggestion.DuplicateReason,
		suggestion.RelatedSuggestionID,
		suggestion.AttachmentHash,
		suggestion.ExtractedTextExcerpt,
		suggestion.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: suggestion %s", common.ErrDuplicateEntry, suggestion.ID)
		}
		return fmt.Errorf("failed to insert suggestion %s: %w", suggestion.ID, err)
	}
	return nil
}

// GetSuggestionByID fetches a single suggestion.
func (s *SQLiteStorage) GetSuggestionByID(ctx context.Context, id string) (*model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id = ?`, id)
	suggestion, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: suggestion %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get suggestion %s: %w", id, err)
	}
	return suggestion, nil
}

// FindByAttachmentHash returns the suggestion created from the exact same
// source file, if any. Non-duplicate suggestions are preferred, earliest
// first, so a chain of re-sent copies always points back at the original.
func (s *SQLiteStorage) FindByAttachmentHash(ctx context.Context, hash string) (*model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE attachment_hash = ?
		ORDER BY is_duplicate ASC, created_at ASC
		LIMIT 1
	`, hash)
	suggestion, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: attachment hash %s", common.ErrNotFound, hash)
		}
		return nil, fmt.Errorf("failed to find suggestion by hash: %w", err)
	}
	return suggestion, nil
}

// FindSimilar returns non-duplicate suggestions inside the query's amount and
// date windows, scoped to one operation, type and currency. Results come back
// earliest-created first; callers treat the first row as canonical.
func (s *SQLiteStorage) FindSimilar(ctx context.Context, query service.SimilarQuery) ([]model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(query.OperationID, "operationID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE operation_id = ?
		  AND type = ?
		  AND currency = ?
		  AND is_duplicate = 0
		  AND amount BETWEEN ? AND ?
		  AND date BETWEEN ? AND ?
		ORDER BY created_at ASC, id ASC
	`,
		query.OperationID,
		string(query.Type),
		string(query.Currency),
		query.MinAmount,
		query.MaxAmount,
		query.StartDate,
		query.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSuggestions(rows)
}

// ListSuggestions returns suggestions matching the filter, newest first.
func (s *SQLiteStorage) ListSuggestions(ctx context.Context, filter service.SuggestionFilter) ([]model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE 1=1`
	args := make([]any, 0, 3)
	if filter.OperationID != "" {
		query += ` AND operation_id = ?`
		args = append(args, filter.OperationID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSuggestions(rows)
}

// UpdateSuggestionStatus records a reviewer decision. Rejected suggestions
// stay in the table for audit.
func (s *SQLiteStorage) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: suggestion %s", common.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (*model.Suggestion, error) {
	var (
		suggestion  model.Suggestion
		description sql.NullString
		reasoning   sql.NullString
		dupReason   sql.NullString
		relatedID   sql.NullString
		hash        sql.NullString
		excerpt     sql.NullString
	)
	err := row.Scan(
		&suggestion.ID,
		&suggestion.OperationID,
		&suggestion.Date,
		&suggestion.Type,
		&suggestion.Currency,
		&suggestion.Amount,
		&description,
		&reasoning,
		&suggestion.DetectionMethod,
		&suggestion.Confidence,
		&suggestion.Status,
		&suggestion.IsDuplicate,
		&dupReason,
		&relatedID,
		&hash,
		&excerpt,
		&suggestion.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	suggestion.Description = description.String
	suggestion.Reasoning = reasoning.String
	suggestion.DuplicateReason = dupReason.String
	suggestion.RelatedSuggestionID = relatedID.String
	suggestion.AttachmentHash = hash.String
	suggestion.ExtractedTextExcerpt = excerpt.String
	return &suggestion, nil
}

func collectSuggestions(rows *sql.Rows) ([]model.Suggestion, error) {
	var suggestions []model.Suggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *suggestion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suggestions: %w", err)
	}
	return suggestions, nil
}
