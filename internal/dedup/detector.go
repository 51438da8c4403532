// Package dedup flags transaction candidates that describe a real-world
// transaction the pipeline already suggested.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
)

// Store is the slice of the persistence layer the detector needs.
type Store interface {
	FindByAttachmentHash(ctx context.Context, hash string) (*model.Suggestion, error)
	FindSimilar(ctx context.Context, query service.SimilarQuery) ([]model.Suggestion, error)
}

// Result is the outcome of a duplicate check.
type Result struct {
	Reason      string
	RelatedID   string
	IsDuplicate bool
}

// Config holds the fuzzy-match tolerance windows.
type Config struct {
	// AmountTolerance is the inclusive relative window, 0.02 = ±2%.
	AmountTolerance float64
	// DateWindowDays is the inclusive window in days, 3 = ±3 days.
	DateWindowDays int
}

// DefaultConfig returns the default tolerance windows.
func DefaultConfig() Config {
	return Config{
		AmountTolerance: 0.02,
		DateWindowDays:  3,
	}
}

// Detector runs the exact and fuzzy duplicate checks.
type Detector struct {
	store Store
	cfg   Config
}

// New creates a duplicate detector over the given store.
func New(store Store, cfg Config) *Detector {
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = 0.02
	}
	if cfg.DateWindowDays <= 0 {
		cfg.DateWindowDays = 3
	}
	return &Detector{store: store, cfg: cfg}
}

// CheckFile reports whether this exact source file already produced
// suggestions. Callers must run it before storing anything for the current
// document: one file legitimately yields several suggestions in a single
// pass, and those siblings are not duplicates of each other.
func (d *Detector) CheckFile(ctx context.Context, attachmentHash string) (Result, error) {
	if attachmentHash == "" {
		return Result{}, nil
	}
	existing, err := d.store.FindByAttachmentHash(ctx, attachmentHash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return Result{}, fmt.Errorf("attachment hash lookup failed: %w", err)
	}
	if existing == nil {
		return Result{}, nil
	}
	return Result{
		IsDuplicate: true,
		Reason:      "same file already processed",
		RelatedID:   existing.ID,
	}, nil
}

// Check evaluates one candidate's values against stored suggestions: a
// same-operation suggestion of the same type and currency with the amount
// inside ±2% and the date inside ±3 days, both inclusive, is a duplicate.
// The related ID always points at the earliest-created non-duplicate match,
// so duplicate pointers never chain.
func (d *Detector) Check(ctx context.Context, candidate model.Candidate, operationID string) (Result, error) {
	delta := candidate.Amount * d.cfg.AmountTolerance
	query := service.SimilarQuery{
		OperationID: operationID,
		Type:        candidate.Type,
		Currency:    candidate.Currency,
		MinAmount:   candidate.Amount - delta,
		MaxAmount:   candidate.Amount + delta,
		StartDate:   candidate.Date.AddDate(0, 0, -d.cfg.DateWindowDays),
		EndDate:     candidate.Date.AddDate(0, 0, d.cfg.DateWindowDays).Add(24*time.Hour - time.Nanosecond),
	}

	matches, err := d.store.FindSimilar(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("similar suggestion lookup failed: %w", err)
	}
	if len(matches) == 0 {
		return Result{}, nil
	}

	// The store returns non-duplicate matches ordered by creation time; the
	// earliest-created one is canonical.
	earliest := matches[0]
	return Result{
		IsDuplicate: true,
		Reason: fmt.Sprintf("similar suggestion exists: %s %.2f %s on %s",
			earliest.Type, earliest.Amount, earliest.Currency,
			earliest.Date.Format("2006-01-02")),
		RelatedID: earliest.ID,
	}, nil
}
