// Package storage provides the data persistence layer for the finsift pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidStatus     = errors.New("invalid suggestion status")
	ErrInvalidSuggestion = errors.New("invalid suggestion")
	ErrInvalidJob        = errors.New("invalid attachment job")
	ErrInvalidReviewItem = errors.New("invalid review item")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSuggestion validates a suggestion before insertion.
func validateSuggestion(suggestion *model.Suggestion) error {
	if suggestion == nil {
		return fmt.Errorf("%w: suggestion", ErrNilParameter)
	}
	if suggestion.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSuggestion)
	}
	if suggestion.OperationID == "" {
		return fmt.Errorf("%w: missing operation ID", ErrInvalidSuggestion)
	}
	if suggestion.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidSuggestion)
	}
	if suggestion.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidSuggestion)
	}

	switch suggestion.Type {
	case model.TypePayment, model.TypeExpense:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSuggestion, suggestion.Type)
	}

	if err := validateStatus(suggestion.Status); err != nil {
		return err
	}

	if suggestion.Confidence < 0 || suggestion.Confidence > 100 {
		return fmt.Errorf("%w: confidence must be between 0 and 100", ErrInvalidSuggestion)
	}

	return nil
}

func validateStatus(status model.SuggestionStatus) error {
	switch status {
	case model.StatusPending, model.StatusApproved, model.StatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

// validateJob validates an attachment job before persisting.
func validateJob(job *model.AttachmentJob) error {
	if job == nil {
		return fmt.Errorf("%w: job", ErrNilParameter)
	}
	if job.AttachmentID == "" {
		return fmt.Errorf("%w: missing attachment ID", ErrInvalidJob)
	}
	if job.MessageID == "" {
		return fmt.Errorf("%w: missing message ID", ErrInvalidJob)
	}
	return nil
}

// validateReviewItem validates a review queue entry.
func validateReviewItem(item *service.ReviewItem) error {
	if item == nil {
		return fmt.Errorf("%w: item", ErrNilParameter)
	}
	if item.FileHash == "" {
		return fmt.Errorf("%w: missing file hash", ErrInvalidReviewItem)
	}
	return nil
}
