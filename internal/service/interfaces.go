// Package service defines the interfaces the pipeline components depend on.
package service

import (
	"context"
	"time"

	"github.com/finsift/finsift/internal/model"
)

// SimilarQuery describes the window used for fuzzy duplicate lookups.
type SimilarQuery struct {
	StartDate   time.Time
	EndDate     time.Time
	OperationID string
	Type        model.TransactionType
	Currency    model.Currency
	MinAmount   float64
	MaxAmount   float64
}

// SuggestionFilter bounds suggestion listings.
type SuggestionFilter struct {
	OperationID string
	Status      model.SuggestionStatus
	Limit       int
}

// ReviewItem is a document the pipeline could not process automatically,
// queued for a human to look at.
type ReviewItem struct {
	CreatedAt time.Time
	BlobKey   string
	FileName  string
	FileHash  string
	Kind      string
	Context   string
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Suggestion operations. Suggestions are append-only from the
	// pipeline's side; only review status may change afterwards.
	InsertSuggestion(ctx context.Context, suggestion *model.Suggestion) error
	GetSuggestionByID(ctx context.Context, id string) (*model.Suggestion, error)
	FindByAttachmentHash(ctx context.Context, hash string) (*model.Suggestion, error)
	FindSimilar(ctx context.Context, query SimilarQuery) ([]model.Suggestion, error)
	ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error

	// Attachment job lifecycle.
	UpdateJobStatus(ctx context.Context, job *model.AttachmentJob) error
	GetJob(ctx context.Context, attachmentID string) (*model.AttachmentJob, error)
	GetJobsByMessage(ctx context.Context, messageID string) ([]model.AttachmentJob, error)

	// Manual-review queue. EnqueueForReview is idempotent on FileHash.
	EnqueueForReview(ctx context.Context, item ReviewItem) error
	ListReviewItems(ctx context.Context, limit int) ([]ReviewItem, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// ReviewSink accepts documents that exhausted every extraction tier.
type ReviewSink interface {
	EnqueueForReview(ctx context.Context, item ReviewItem) error
}

// BlobStore fetches stored attachment binaries, keyed by content hash.
type BlobStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// AttachmentFetcher retrieves an attachment's binary from its origin (the
// mail provider). Implementations live with the excluded email-sync layer.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, attachmentID string) ([]byte, error)
}
