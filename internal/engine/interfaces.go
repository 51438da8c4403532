// Package engine orchestrates the tiered extraction cascade and turns its
// output into stored, duplicate-checked suggestions.
package engine

import (
	"context"

	"github.com/finsift/finsift/internal/dedup"
	"github.com/finsift/finsift/internal/extract"
	"github.com/finsift/finsift/internal/model"
)

// TextRouter converts an attachment binary into text.
type TextRouter interface {
	Extract(ctx context.Context, data []byte, filename string) (extract.Result, error)
}

// AIExtractor is the AI extraction tier.
type AIExtractor interface {
	ExtractTransactions(ctx context.Context, text string, opCtx model.OperationContext) ([]model.Candidate, error)
}

// RuleAnalyzer is the keyword/regex fallback tier.
type RuleAnalyzer interface {
	Analyze(text string, opCtx model.OperationContext) []model.Candidate
}

// DuplicateChecker evaluates a document and its candidates against stored
// suggestions. CheckFile catches a source file processed in an earlier pass
// and must run before any of the current document's suggestions are stored;
// Check compares one candidate's values.
type DuplicateChecker interface {
	CheckFile(ctx context.Context, attachmentHash string) (dedup.Result, error)
	Check(ctx context.Context, candidate model.Candidate, operationID string) (dedup.Result, error)
}

// SuggestionWriter is the slice of the persistence layer the pipeline writes
// suggestions through.
type SuggestionWriter interface {
	InsertSuggestion(ctx context.Context, suggestion *model.Suggestion) error
}
