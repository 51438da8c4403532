package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
	"github.com/google/uuid"
)

// excerptLimit bounds the extracted-text excerpt stored on each suggestion.
const excerptLimit = 500

// Pipeline drives one document from binary to terminal outcome: a stored
// suggestion per candidate (duplicate-flagged or not), or a manual-review
// entry when every tier came up empty. A document is never silently dropped.
type Pipeline struct {
	cascade  *Cascade
	detector DuplicateChecker
	store    SuggestionWriter
	review   service.ReviewSink
	clock    common.Clock
	logger   *slog.Logger
}

// NewPipeline creates the processing pipeline.
func NewPipeline(cascade *Cascade, detector DuplicateChecker, store SuggestionWriter, review service.ReviewSink, clock common.Clock, logger *slog.Logger) *Pipeline {
	if clock == nil {
		clock = common.NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cascade:  cascade,
		detector: detector,
		store:    store,
		review:   review,
		clock:    clock,
		logger:   logger,
	}
}

// ProcessAttachment runs the cascade over one attachment binary and persists
// the outcome. The returned suggestions include any flagged as duplicates;
// an empty slice with a nil error means the document went to manual review.
func (p *Pipeline) ProcessAttachment(ctx context.Context, binary []byte, filename string, opCtx model.OperationContext) ([]model.Suggestion, error) {
	if opCtx.OperationID == "" {
		return nil, fmt.Errorf("operation context is missing an operation ID")
	}

	hash := model.HashBytes(binary)
	detection, err := p.cascade.Detect(ctx, binary, filename, opCtx)
	if err != nil {
		return nil, fmt.Errorf("cascade failed for %s: %w", filename, err)
	}

	if len(detection.Candidates) == 0 {
		item := service.ReviewItem{
			BlobKey:   "attachments/" + hash,
			FileName:  filename,
			FileHash:  hash,
			Kind:      "unprocessable",
			Context:   opCtx.OperationID,
			CreatedAt: p.clock.Now(),
		}
		if reviewErr := p.review.EnqueueForReview(ctx, item); reviewErr != nil {
			return nil, fmt.Errorf("failed to queue %s for review: %w", filename, reviewErr)
		}
		p.logger.Info("document queued for manual review",
			"file", filename,
			"operation", opCtx.OperationID)
		return nil, nil
	}

	// The file-level check runs once, before anything from this pass is
	// stored: candidates of the same document are siblings, not duplicates
	// of each other.
	fileDup, err := p.detector.CheckFile(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed for %s: %w", filename, err)
	}

	excerpt := truncate(detection.Text, excerptLimit)
	suggestions := make([]model.Suggestion, 0, len(detection.Candidates))
	for _, candidate := range detection.Candidates {
		dupResult := fileDup
		if !dupResult.IsDuplicate {
			var checkErr error
			dupResult, checkErr = p.detector.Check(ctx, candidate, opCtx.OperationID)
			if checkErr != nil {
				return suggestions, fmt.Errorf("duplicate check failed for %s: %w", filename, checkErr)
			}
		}

		suggestion := model.Suggestion{
			ID:                   uuid.New().String(),
			OperationID:          opCtx.OperationID,
			Date:                 candidate.Date,
			Type:                 candidate.Type,
			Currency:             candidate.Currency,
			Description:          describe(candidate, filename),
			Reasoning:            candidate.Reasoning,
			DetectionMethod:      detection.Method,
			Confidence:           candidate.Confidence,
			Amount:               candidate.Amount,
			Status:               model.StatusPending,
			IsDuplicate:          dupResult.IsDuplicate,
			DuplicateReason:      dupResult.Reason,
			RelatedSuggestionID:  dupResult.RelatedID,
			AttachmentHash:       hash,
			ExtractedTextExcerpt: excerpt,
			CreatedAt:            p.clock.Now(),
		}
		if err := p.store.InsertSuggestion(ctx, &suggestion); err != nil {
			return suggestions, fmt.Errorf("failed to store suggestion for %s: %w", filename, err)
		}
		suggestions = append(suggestions, suggestion)

		p.logger.Info("suggestion stored",
			"suggestion", suggestion.ID,
			"operation", opCtx.OperationID,
			"method", detection.Method,
			"amount", suggestion.Amount,
			"duplicate", suggestion.IsDuplicate)
	}

	return suggestions, nil
}

func describe(candidate model.Candidate, filename string) string {
	description := candidate.Description
	if description == "" {
		description = filename
	}
	if candidate.Reference != "" {
		description += " (ref " + candidate.Reference + ")"
	}
	return description
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
